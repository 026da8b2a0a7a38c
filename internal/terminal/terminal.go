// Package terminal renders the review screen as plain text and reads the
// user's answers from a line-oriented input.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"insreview/internal"
	"insreview/internal/download"
	"insreview/internal/fileinfo"
	"insreview/internal/review"
)

// Status is the visibility of each panel, as the user would see it.
type Status struct {
	Processing     bool
	File           string
	ResultsVisible bool
	ErrorVisible   bool
	Error          string
}

type Screen struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
	now func() time.Time

	st Status
}

func New(in io.Reader, out io.Writer) *Screen {
	return &Screen{out: out, in: bufio.NewReader(in), now: time.Now}
}

func (s *Screen) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// ReadLine prints prompt and returns the next input line without its line
// ending. io.EOF is returned only when no input is left at all.
func (s *Screen) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		s.printf("%s", prompt)
	}
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (s *Screen) Confirm(prompt string) bool {
	answer, err := s.ReadLine(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *Screen) SetProcessing(on bool) {
	s.mu.Lock()
	was := s.st.Processing
	s.st.Processing = on
	s.mu.Unlock()
	if on && !was {
		s.printf("Processing...\n")
	}
}

func (s *Screen) ShowFile(info fileinfo.Info) {
	s.mu.Lock()
	s.st.File = info.String()
	s.mu.Unlock()
	s.printf("Selected %s\n", info)
}

func (s *Screen) ClearFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.File = ""
}

func (s *Screen) ShowResults(res review.Results) {
	s.mu.Lock()
	s.st.ResultsVisible = true
	s.mu.Unlock()

	confidence := review.Placeholder
	if res.Confidence != nil {
		confidence = fmt.Sprintf("%.0f%%", *res.Confidence)
	}
	s.printf("\nRecord #%s  [%s]  confidence %s (%s)\n", res.RecordID, res.Company, confidence, res.Tier)
	if res.NeedsReview {
		s.printf("Flagged for review\n")
	}

	rows := make([][]string, 0, len(res.Fields))
	for _, f := range res.Fields {
		rows = append(rows, []string{f.Label, f.Value})
	}
	s.table([]string{"Field", "Value"}, rows)

	for _, line := range res.Validation {
		s.printf("%s\n", line.Text)
	}
}

func (s *Screen) HideResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.ResultsVisible = false
}

func (s *Screen) ShowError(msg string) {
	s.mu.Lock()
	s.st.ErrorVisible = true
	s.st.Error = msg
	s.mu.Unlock()
	s.printf("error: %s\n", msg)
}

func (s *Screen) HideError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.ErrorVisible = false
	s.st.Error = ""
}

func (s *Screen) ShowHistory(list review.HistoryList) {
	title := "Recent uploads"
	if list.NeedsReview {
		title = "Recent uploads needing review"
	}
	s.printf("\n%s\n", title)
	if list.Placeholder != "" {
		s.printf("%s\n", list.Placeholder)
		return
	}

	rows := make([][]string, 0, len(list.Rows))
	for _, r := range list.Rows {
		confidence := review.Placeholder
		if r.Confidence != nil {
			confidence = fmt.Sprintf("%.0f%% %s", *r.Confidence, r.Tier)
		}
		flag := ""
		if r.NeedsReview {
			flag = "yes"
		}
		rows = append(rows, []string{r.ID.String(), r.Company, r.Filename, r.Policy, s.when(r), confidence, flag})
	}
	s.table([]string{"ID", "Company", "File", "Policy", "Uploaded", "Confidence", "Review"}, rows)
}

func (s *Screen) when(r review.HistoryRow) string {
	if r.UploadedAt.IsZero() {
		if r.UploadDate == "" {
			return review.Placeholder
		}
		return r.UploadDate
	}
	return humanize.RelTime(r.UploadedAt, s.now(), "ago", "from now")
}

func (s *Screen) ShowStats(stats internal.Stats) {
	s.printf("Total records: %s  Needs review: %s\n",
		humanize.Comma(int64(stats.TotalRecords)), humanize.Comma(int64(stats.NeedsReview)))
}

func (s *Screen) ShowCompanies(companies []string) {
	if len(companies) == 0 {
		s.printf("No companies configured\n")
		return
	}
	for _, c := range companies {
		s.printf("  %s\n", c)
	}
}

func (s *Screen) ShowDownload(path string) {
	summary, err := download.Summarize(path)
	if err != nil || summary == "" {
		s.printf("Saved %s\n", path)
		return
	}
	s.printf("Saved %s (%s)\n", path, summary)
}

func (s *Screen) table(header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tw := tablewriter.NewWriter(s.out)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(rows)
	tw.Render()
}

func (s *Screen) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
