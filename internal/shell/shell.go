// Package shell is the interactive session: it reads one command per line
// and dispatches it to the review controller, which renders the outcome.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"insreview/internal"
	"insreview/internal/fileinfo"
	"insreview/internal/logger"
	"insreview/internal/review"
)

type Controller interface {
	Init(ctx context.Context)
	SelectFile(path string) error
	SelectCompany(company string)
	Submit(ctx context.Context) error
	UploadFile(ctx context.Context, path string) error
	View(ctx context.Context, id internal.RecordID) error
	Delete(ctx context.Context, id internal.RecordID) error
	Export(ctx context.Context, format internal.ExportFormat) error
	ExportRecords(ctx context.Context, format internal.ExportFormat, ids []internal.RecordID) error
	LoadHistory(ctx context.Context, needsReview bool) error
	LoadStats(ctx context.Context) error
	Companies(ctx context.Context) ([]string, error)
	Reset()

	SelectedFile() (fileinfo.Info, bool)
	Company() string
	CurrentRecord() (internal.RecordID, internal.Record, bool)
	ResultsVisible() bool
}

type LineReader interface {
	ReadLine(prompt string) (string, error)
}

const prompt = "insreview> "

type Shell struct {
	ctrl Controller
	in   LineReader
	out  io.Writer

	// interrupts cancels the running command, or ends the session when
	// it arrives at the idle prompt.
	interrupts <-chan os.Signal
}

func New(ctrl Controller, in LineReader, out io.Writer, interrupts <-chan os.Signal) *Shell {
	return &Shell{ctrl: ctrl, in: in, out: out, interrupts: interrupts}
}

// Run loads the first page and serves commands until quit, end of input or
// ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.ctrl.Init(ctx)
	fmt.Fprintln(s.out, `Type "help" for commands.`)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.readLine()
		if errors.Is(err, io.EOF) || errors.Is(err, errInterrupted) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.exec(ctx, line); quit {
			return nil
		}
	}
}

var errInterrupted = errors.New("interrupted")

type readResult struct {
	line string
	err  error
}

// readLine waits for the next line. An interrupt at the idle prompt ends the
// session; the pending read is abandoned.
func (s *Shell) readLine() (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		line, err := s.in.ReadLine(prompt)
		ch <- readResult{line: line, err: err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-s.interrupts:
		return "", errInterrupted
	}
}

func (s *Shell) exec(ctx context.Context, line string) bool {
	s.drainInterrupts()

	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.interrupts:
			cancel()
		case <-done:
		}
	}()

	quit, err := s.Dispatch(cmdCtx, line)
	switch {
	case err == nil:
	case errors.Is(err, review.ErrCancelled), errors.Is(err, context.Canceled):
		fmt.Fprintln(s.out, "Cancelled")
	case errors.Is(err, review.ErrStale):
	case errors.Is(err, errUsage):
		fmt.Fprintln(s.out, err.Error())
	default:
		logger.Get().Debugw("command failed", "line", line, "error", err)
	}
	return quit
}

func (s *Shell) drainInterrupts() {
	for {
		select {
		case <-s.interrupts:
		default:
			return
		}
	}
}

var errUsage = errors.New("usage")

func usageErr(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

// Dispatch runs one command line. It reports whether the session should end.
func (s *Shell) Dispatch(ctx context.Context, line string) (bool, error) {
	cmd, rest := splitCommand(line)
	switch cmd {
	case "":
		return false, nil
	case "help", "?":
		s.help()
	case "quit", "exit":
		return true, nil
	case "select":
		if rest == "" {
			return false, usageErr("select <path>")
		}
		return false, s.ctrl.SelectFile(rest)
	case "upload":
		if rest == "" {
			return false, usageErr("upload <path>")
		}
		return false, s.ctrl.UploadFile(ctx, rest)
	case "company":
		s.ctrl.SelectCompany(rest)
		if c := s.ctrl.Company(); c != "" {
			fmt.Fprintf(s.out, "Company: %s\n", c)
		} else {
			fmt.Fprintln(s.out, "Company: auto-detect")
		}
	case "submit":
		return false, s.ctrl.Submit(ctx)
	case "view", "delete":
		id, err := internal.ParseRecordID(rest)
		if err != nil {
			return false, usageErr(cmd + " <id>")
		}
		if cmd == "view" {
			return false, s.ctrl.View(ctx, id)
		}
		return false, s.ctrl.Delete(ctx, id)
	case "export":
		return false, s.export(ctx, rest)
	case "history":
		switch rest {
		case "":
			return false, s.ctrl.LoadHistory(ctx, false)
		case "review":
			return false, s.ctrl.LoadHistory(ctx, true)
		default:
			return false, usageErr("history [review]")
		}
	case "stats":
		return false, s.ctrl.LoadStats(ctx)
	case "companies":
		_, err := s.ctrl.Companies(ctx)
		return false, err
	case "reset":
		s.ctrl.Reset()
	case "status":
		s.status()
	default:
		return false, usageErr(fmt.Sprintf("unknown command %q, try help", cmd))
	}
	return false, nil
}

func (s *Shell) export(ctx context.Context, rest string) error {
	args := strings.Fields(rest)
	if len(args) == 0 {
		return usageErr("export <excel|csv|json> [id ...]")
	}
	format, ok := internal.ParseExportFormat(args[0])
	if !ok {
		return usageErr("export <excel|csv|json> [id ...]")
	}
	if len(args) == 1 {
		return s.ctrl.Export(ctx, format)
	}

	ids := make([]internal.RecordID, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := internal.ParseRecordID(a)
		if err != nil {
			return usageErr(fmt.Sprintf("bad record id %q", a))
		}
		ids = append(ids, id)
	}
	return s.ctrl.ExportRecords(ctx, format, ids)
}

func (s *Shell) status() {
	file := "none"
	if info, ok := s.ctrl.SelectedFile(); ok {
		file = info.String()
	}
	company := s.ctrl.Company()
	if company == "" {
		company = "auto-detect"
	}
	record := "none"
	if id, _, ok := s.ctrl.CurrentRecord(); ok {
		record = "#" + id.String()
	}
	results := "hidden"
	if s.ctrl.ResultsVisible() {
		results = "shown"
	}
	fmt.Fprintf(s.out, "File: %s\nCompany: %s\nRecord: %s\nResults: %s\n", file, company, record, results)
}

func (s *Shell) help() {
	fmt.Fprintln(s.out, "commands:")
	fmt.Fprintln(s.out, "  select <path>                  choose a document")
	fmt.Fprintln(s.out, "  company [name]                 set the insurance company (blank = auto-detect)")
	fmt.Fprintln(s.out, "  submit                         upload the selected document")
	fmt.Fprintln(s.out, "  upload <path>                  select and upload in one step")
	fmt.Fprintln(s.out, "  view <id>                      show a stored record")
	fmt.Fprintln(s.out, "  delete <id>                    delete a stored record")
	fmt.Fprintln(s.out, "  export <excel|csv|json> [id..] download the current record, or stored records by id")
	fmt.Fprintln(s.out, "  history [review]               recent uploads, optionally only those needing review")
	fmt.Fprintln(s.out, "  stats                          record totals")
	fmt.Fprintln(s.out, "  companies                      supported companies")
	fmt.Fprintln(s.out, "  reset                          clear the form")
	fmt.Fprintln(s.out, "  status                         what is selected right now")
	fmt.Fprintln(s.out, "  quit                           leave (Ctrl-D or Ctrl-C at the prompt also work)")
	fmt.Fprintln(s.out, "Ctrl-C while a command runs cancels just that command.")
}

// splitCommand returns the lower-cased first word and the trimmed rest, so
// paths with spaces survive.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.Trim(strings.TrimSpace(rest), `"'`)
	return strings.ToLower(cmd), rest
}
