package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL   string
	APIToken     string
	APITimeoutMs int
	RateLimitRPS int

	DownloadDir    string
	ExportPrefix   string
	PageSize       int
	DefaultCompany string
	TrackStats     bool

	WatchDir         string
	WatchIntervalSec int

	LogLevel    string
	Environment string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL:   getEnv("INSREVIEW_API_BASE_URL", "http://localhost:5000"),
		APIToken:     getEnv("INSREVIEW_API_TOKEN", ""),
		APITimeoutMs: getEnvInt("INSREVIEW_API_TIMEOUT_MS", 0),
		RateLimitRPS: getEnvInt("INSREVIEW_RATE_LIMIT_RPS", 0),

		DownloadDir:    getEnv("INSREVIEW_DOWNLOAD_DIR", filepath.Join(cwd, "downloads")),
		ExportPrefix:   getEnv("INSREVIEW_EXPORT_PREFIX", "renters_data"),
		PageSize:       getEnvInt("INSREVIEW_PAGE_SIZE", 10),
		DefaultCompany: getEnv("INSREVIEW_DEFAULT_COMPANY", ""),
		TrackStats:     getEnvBool("INSREVIEW_TRACK_STATS", true),

		WatchDir:         getEnv("INSREVIEW_WATCH_DIR", filepath.Join(cwd, "inbox")),
		WatchIntervalSec: getEnvInt("INSREVIEW_WATCH_INTERVAL_SEC", 5),

		LogLevel:    getEnv("INSREVIEW_LOG_LEVEL", "warn"),
		Environment: getEnv("INSREVIEW_ENVIRONMENT", "development"),
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.WatchIntervalSec <= 0 {
		cfg.WatchIntervalSec = 5
	}
	if strings.TrimSpace(cfg.ExportPrefix) == "" {
		cfg.ExportPrefix = "renters_data"
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
