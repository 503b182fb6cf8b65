// Package config provides centralized configuration management.
// Load is called once by the CLI layer; the resulting Config value is passed
// explicitly into every pipeline entry point.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultGapMinutes    = 30.0
	DefaultRetentionDays = 30
	DefaultPollInterval  = 5 * time.Minute
)

// Config holds all worklog settings.
type Config struct {
	// DataRoot is the installation root (~/.worklog by default).
	DataRoot string

	// IntakeDir holds unprocessed *.jsonl intake files.
	IntakeDir string

	// ProcessedDir holds archived files already ingested.
	ProcessedDir string

	// ColdDir holds gzip-compressed archives past the retention window.
	ColdDir string

	// DatabasePath is the SQLite database file.
	DatabasePath string

	// GapMinutes is the inactivity gap that closes a session.
	GapMinutes float64

	// CustomPatterns are extra issue-key regexes tried in addition to the
	// built-in pattern.
	CustomPatterns []string

	// RetentionDays is how long archived files stay uncompressed.
	RetentionDays int

	// PollInterval is the watch-mode polling interval.
	PollInterval time.Duration

	// TrackerBaseURL and TrackerToken configure the issue-tracker sync.
	// Empty base URL disables sync.
	TrackerBaseURL string
	TrackerToken   string

	// LogLevel and LogFormat configure logging output.
	LogLevel  string
	LogFormat string
}

// Load builds a Config from WORKLOG_* environment variables with defaults
// rooted under the user home directory.
func Load() (Config, error) {
	root := os.Getenv("WORKLOG_DATA_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		root = filepath.Join(home, ".worklog")
	}

	cfg := Config{
		DataRoot:       root,
		IntakeDir:      getEnvDefault("WORKLOG_INTAKE_DIR", filepath.Join(root, "intake")),
		ProcessedDir:   getEnvDefault("WORKLOG_PROCESSED_DIR", filepath.Join(root, "processed")),
		DatabasePath:   getEnvDefault("WORKLOG_DB_PATH", filepath.Join(root, "worklog.db")),
		GapMinutes:     getEnvFloat("WORKLOG_GAP_MINUTES", DefaultGapMinutes),
		RetentionDays:  getEnvInt("WORKLOG_RETENTION_DAYS", DefaultRetentionDays),
		PollInterval:   getEnvDuration("WORKLOG_POLL_INTERVAL", DefaultPollInterval),
		TrackerBaseURL: os.Getenv("WORKLOG_TRACKER_URL"),
		TrackerToken:   os.Getenv("WORKLOG_TRACKER_TOKEN"),
		LogLevel:       getEnvDefault("WORKLOG_LOG_LEVEL", "info"),
		LogFormat:      getEnvDefault("WORKLOG_LOG_FORMAT", "console"),
	}
	cfg.ColdDir = getEnvDefault("WORKLOG_COLD_DIR", filepath.Join(cfg.ProcessedDir, "cold"))

	if raw := os.Getenv("WORKLOG_ISSUE_PATTERNS"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.CustomPatterns = append(cfg.CustomPatterns, p)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config before any file is touched. Failures here are
// fatal at startup, never a per-file concern.
func (c Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("config: data root is empty")
	}
	if c.GapMinutes <= 0 {
		return fmt.Errorf("config: gap minutes must be positive, got %v", c.GapMinutes)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("config: retention days must not be negative, got %d", c.RetentionDays)
	}
	for _, p := range c.CustomPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("config: invalid issue pattern %q: %w", p, err)
		}
	}
	return nil
}

// EnsureDirs creates the intake, processed and cold directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.IntakeDir, c.ProcessedDir, c.ColdDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
