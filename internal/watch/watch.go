// Package watch turns a directory into a drop zone: every file that lands in
// it is uploaded once.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"insreview/internal/logger"
)

type Uploader interface {
	UploadFile(ctx context.Context, path string) error
}

type Result struct {
	Uploaded int
	Failed   int
}

type fingerprint struct {
	size    int64
	modTime time.Time
}

type Service struct {
	dir      string
	interval time.Duration
	up       Uploader
	seen     map[string]fingerprint
}

func NewService(dir string, interval time.Duration, up Uploader) *Service {
	return &Service{dir: dir, interval: interval, up: up, seen: map[string]fingerprint{}}
}

// Prime marks everything already in the directory as seen.
func (s *Service) Prime() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	entries, err := s.list()
	if err != nil {
		return err
	}
	for name, fp := range entries {
		s.seen[name] = fp
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	for {
		res, err := s.Scan(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Get().Warnw("watch cycle error", "dir", s.dir, "error", err)
		} else if res.Uploaded+res.Failed > 0 {
			logger.Get().Infow("watch cycle done", "dir", s.dir, "uploaded", res.Uploaded, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

// Scan uploads every new or changed file, oldest name first. A file whose
// upload fails is not tried again until it changes.
func (s *Service) Scan(ctx context.Context) (Result, error) {
	var res Result
	entries, err := s.list()
	if err != nil {
		return res, err
	}

	names := make([]string, 0, len(entries))
	for name, fp := range entries {
		if prev, ok := s.seen[name]; ok && prev == fp {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := filepath.Join(s.dir, name)
		err := s.up.UploadFile(ctx, path)
		if errors.Is(err, context.Canceled) {
			return res, err
		}
		s.seen[name] = entries[name]
		if err != nil {
			res.Failed++
			logger.Get().Warnw("drop upload failed", "file", path, "error", err)
			continue
		}
		res.Uploaded++
	}
	return res, nil
}

func (s *Service) list() (map[string]fingerprint, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read drop dir: %w", err)
	}
	out := make(map[string]fingerprint, len(dirEntries))
	for _, e := range dirEntries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[e.Name()] = fingerprint{size: info.Size(), modTime: info.ModTime()}
	}
	return out, nil
}
