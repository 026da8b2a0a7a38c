package fileinfo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(path, png, 0o644))

	info, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", info.Name)
	assert.Equal(t, int64(len(png)), info.Size)
	assert.Equal(t, "image/png", info.MIME)
	assert.Zero(t, info.Pages)
	assert.Equal(t, "scan.png (16 B, image/png)", info.String())
}

func TestDescribeBrokenPDFStillSelectable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf\n"), 0o644))

	info, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.MIME)
	assert.Zero(t, info.Pages)
}

func TestDescribeRejectsMissingAndDirectories(t *testing.T) {
	dir := t.TempDir()

	_, err := Describe(filepath.Join(dir, "missing.pdf"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Describe(dir)
	assert.ErrorIs(t, err, ErrNotAFile)
}

func TestInfoStringPages(t *testing.T) {
	assert.Equal(t, "a.pdf (2.0 kB, application/pdf, 3 pages)", Info{Name: "a.pdf", Size: 2000, MIME: "application/pdf", Pages: 3}.String())
	assert.Equal(t, "b.pdf (10 B, 1 page)", Info{Name: "b.pdf", Size: 10, Pages: 1}.String())
}
