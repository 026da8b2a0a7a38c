package download

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"insreview/internal"
)

// Saver writes exported files into a download directory. Existing files are
// never overwritten; a " (n)" suffix is added the way browsers do.
type Saver struct {
	Dir string
}

func NewSaver(dir string) *Saver {
	return &Saver{Dir: dir}
}

func FileName(prefix string, format internal.ExportFormat) string {
	return prefix + "." + format.Extension()
}

func (s *Saver) Save(name string, blob []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	name = filepath.Base(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n < 1000; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(s.Dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(blob); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("too many existing downloads named %s", name)
}

// Summarize describes the contents of a downloaded export by its extension.
func Summarize(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return summarizeXLSX(path)
	case ".csv":
		return summarizeCSV(path)
	case ".json":
		return summarizeJSON(path)
	default:
		return "", nil
	}
}

func summarizeXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	parts := []string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s: %s", sheet, plural(dataRows(len(rows)), "row")))
	}
	return strings.Join(parts, "; "), nil
}

func summarizeCSV(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	blob = bytes.TrimPrefix(blob, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(blob))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", err
	}
	return plural(dataRows(len(rows)), "row"), nil
}

func summarizeJSON(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal(blob, &v); err != nil {
		return "", err
	}
	if arr, ok := v.([]any); ok {
		return plural(len(arr), "record"), nil
	}
	return plural(1, "record"), nil
}

// dataRows discounts the header row.
func dataRows(n int) int {
	if n == 0 {
		return 0
	}
	return n - 1
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
