// Package logger holds the process-wide zap logger used for diagnostics.
// User-facing output never goes through it.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init builds the global logger. Development output is human readable on
// stderr; production emits JSON.
func Init(level, environment string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.WarnLevel
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	mu.Lock()
	logger = built.Sugar()
	mu.Unlock()
	return nil
}

// Get returns the global logger, or a no-op logger if Init was never called.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

func Close() {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return
	}
	// Sync on a terminal stderr returns EINVAL on linux.
	_ = l.Sync()
}
