package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("WORKLOG_DATA_ROOT", root)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.DataRoot)
	assert.Equal(t, filepath.Join(root, "intake"), cfg.IntakeDir)
	assert.Equal(t, filepath.Join(root, "processed"), cfg.ProcessedDir)
	assert.Equal(t, filepath.Join(root, "processed", "cold"), cfg.ColdDir)
	assert.Equal(t, filepath.Join(root, "worklog.db"), cfg.DatabasePath)
	assert.Equal(t, DefaultGapMinutes, cfg.GapMinutes)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Empty(t, cfg.CustomPatterns)
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("WORKLOG_DATA_ROOT", root)
	t.Setenv("WORKLOG_GAP_MINUTES", "45.5")
	t.Setenv("WORKLOG_RETENTION_DAYS", "7")
	t.Setenv("WORKLOG_POLL_INTERVAL", "90s")
	t.Setenv("WORKLOG_ISSUE_PATTERNS", `gh-\d+ , ops-\d+`)
	t.Setenv("WORKLOG_TRACKER_URL", "https://tracker.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45.5, cfg.GapMinutes)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{`gh-\d+`, `ops-\d+`}, cfg.CustomPatterns)
	assert.Equal(t, "https://tracker.local", cfg.TrackerBaseURL)
}

func TestLoadRejectsInvalidPattern(t *testing.T) {
	t.Setenv("WORKLOG_DATA_ROOT", t.TempDir())
	t.Setenv("WORKLOG_ISSUE_PATTERNS", "(")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateGapMustBePositive(t *testing.T) {
	cfg := Config{DataRoot: "/x", GapMinutes: 0}
	assert.Error(t, cfg.Validate())

	cfg.GapMinutes = -5
	assert.Error(t, cfg.Validate())

	cfg.GapMinutes = 30
	assert.NoError(t, cfg.Validate())
}

func TestValidateRetention(t *testing.T) {
	cfg := Config{DataRoot: "/x", GapMinutes: 30, RetentionDays: -1}
	assert.Error(t, cfg.Validate())
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Config{
		DataRoot:     root,
		IntakeDir:    filepath.Join(root, "intake"),
		ProcessedDir: filepath.Join(root, "processed"),
		ColdDir:      filepath.Join(root, "processed", "cold"),
	}
	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.IntakeDir, cfg.ProcessedDir, cfg.ColdDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
