package fileinfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

var ErrNotAFile = errors.New("not a regular file")

type Info struct {
	Path  string
	Name  string
	Size  int64
	MIME  string
	Pages int
}

// Describe checks that path is a readable regular file and gathers what the
// file-info line shows. Type and page count are best effort; no content
// validation happens here.
func Describe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	if !st.Mode().IsRegular() {
		return Info{}, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	info := Info{
		Path: path,
		Name: filepath.Base(path),
		Size: st.Size(),
	}

	if mt, err := mimetype.DetectFile(path); err == nil {
		info.MIME = mt.String()
		if mt.Is("application/pdf") {
			info.Pages = pageCount(path)
		}
	}
	return info, nil
}

func pageCount(path string) (n int) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}

func (i Info) String() string {
	parts := []string{humanize.Bytes(uint64(i.Size))}
	if i.MIME != "" {
		parts = append(parts, strings.SplitN(i.MIME, ";", 2)[0])
	}
	switch {
	case i.Pages == 1:
		parts = append(parts, "1 page")
	case i.Pages > 1:
		parts = append(parts, fmt.Sprintf("%d pages", i.Pages))
	}
	return fmt.Sprintf("%s (%s)", i.Name, strings.Join(parts, ", "))
}
