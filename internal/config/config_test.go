package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"SYNC_FOLDER_PATH",
		"CLOUD_FOLDER_NAME",
		"YANDEX_TOKEN",
		"SYNC_PERIOD",
		"LOG_FILE_PATH",
		"SYNC_IGNORE_FILE",
		"JOURNAL_PATH",
		"ENVIRONMENT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// setMinimalEnv sets the required env vars pointing at a temp dir.
func setMinimalEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("SYNC_FOLDER_PATH", dir)
	t.Setenv("CLOUD_FOLDER_NAME", "backups")
	t.Setenv("YANDEX_TOKEN", "y0_test_token")
	t.Setenv("SYNC_PERIOD", "30")
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "sync.log"))
}

func TestLoad_Minimal(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.SyncFolderPath)
	assert.Equal(t, "backups", cfg.CloudFolderName)
	assert.Equal(t, "y0_test_token", cfg.YandexToken)
	assert.Equal(t, 30*time.Second, cfg.SyncPeriod)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.IgnorePatterns)
}

func TestLoad_DurationPeriod(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	t.Setenv("SYNC_PERIOD", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SyncPeriod)
}

func TestLoad_ResolvesRelativeSyncFolder(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	t.Chdir(filepath.Dir(dir))
	t.Setenv("SYNC_FOLDER_PATH", filepath.Base(dir))

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.SyncFolderPath))
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"sync folder", "SYNC_FOLDER_PATH", "SYNC_FOLDER_PATH is required"},
		{"cloud folder", "CLOUD_FOLDER_NAME", "CLOUD_FOLDER_NAME is required"},
		{"token", "YANDEX_TOKEN", "YANDEX_TOKEN is required"},
		{"period", "SYNC_PERIOD", "SYNC_PERIOD is required"},
		{"log file", "LOG_FILE_PATH", "LOG_FILE_PATH is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			dir := t.TempDir()
			setMinimalEnv(t, dir)
			os.Unsetenv(tt.key)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_SyncFolderMustExist(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	t.Setenv("SYNC_FOLDER_PATH", filepath.Join(dir, "missing"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_SyncFolderMustBeDirectory(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	setMinimalEnv(t, dir)
	t.Setenv("SYNC_FOLDER_PATH", file)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"30", 30 * time.Second, false},
		{"1", time.Second, false},
		{"2m30s", 2*time.Minute + 30*time.Second, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"soon", 0, true},
		{"-1s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parsePeriod(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_IgnoreFile(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)

	ignorePath := filepath.Join(dir, "ignore.yaml")
	require.NoError(t, os.WriteFile(ignorePath, []byte("ignore:\n  - \"*.tmp\"\n  - \"~$*\"\n"), 0o644))
	t.Setenv("SYNC_IGNORE_FILE", ignorePath)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp", "~$*"}, cfg.IgnorePatterns)
}

func TestLoad_IgnoreFileMissing(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	t.Setenv("SYNC_IGNORE_FILE", filepath.Join(dir, "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading ignore patterns")
}

func TestLoad_IgnoreFileBadPattern(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)

	ignorePath := filepath.Join(dir, "ignore.yaml")
	require.NoError(t, os.WriteFile(ignorePath, []byte("ignore:\n  - \"[unclosed\"\n"), 0o644))
	t.Setenv("SYNC_IGNORE_FILE", ignorePath)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
}

func TestLoad_JournalPathDefault(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	os.Unsetenv("JOURNAL_PATH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.JournalPath, filepath.Join(".disksync", "journal.db"))
}

func TestLoad_JournalPathOverride(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	setMinimalEnv(t, dir)
	custom := filepath.Join(dir, "custom.db")
	t.Setenv("JOURNAL_PATH", custom)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, custom, cfg.JournalPath)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
}
