package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	paths []string
	fail  map[string]bool
}

func (u *recordingUploader) UploadFile(_ context.Context, path string) error {
	u.paths = append(u.paths, filepath.Base(path))
	if u.fail[filepath.Base(path)] {
		return errors.New("boom")
	}
	return nil
}

func drop(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScanUploadsNewFilesOnce(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{}
	svc := NewService(dir, time.Second, up)

	drop(t, dir, "b.pdf", "b")
	drop(t, dir, "a.png", "a")
	drop(t, dir, ".partial", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	res, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Uploaded: 2}, res)
	assert.Equal(t, []string{"a.png", "b.pdf"}, up.paths)

	res, err = svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, up.paths, 2)
}

func TestScanRetriesOnlyChangedFailures(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{fail: map[string]bool{"bad.pdf": true}}
	svc := NewService(dir, time.Second, up)

	drop(t, dir, "bad.pdf", "v1")
	res, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 1}, res)

	res, _ = svc.Scan(context.Background())
	assert.Equal(t, Result{}, res)

	up.fail = nil
	drop(t, dir, "bad.pdf", "version two")
	res, err = svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Uploaded: 1}, res)
}

func TestPrimeSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	drop(t, dir, "old.pdf", "old")
	up := &recordingUploader{}
	svc := NewService(dir, time.Second, up)

	require.NoError(t, svc.Prime())
	drop(t, dir, "new.pdf", "new")

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new.pdf"}, up.paths)
}

func TestScanMissingDir(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing"), time.Second, &recordingUploader{})
	_, err := svc.Scan(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	drop(t, dir, "a.pdf", "a")
	up := &recordingUploader{}
	svc := NewService(dir, 10*time.Millisecond, up)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, svc.Run(ctx))
	assert.Equal(t, []string{"a.pdf"}, up.paths)
}
