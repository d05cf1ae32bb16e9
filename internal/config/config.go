package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-based configuration for disksync.
type Config struct {
	// Local directory whose top-level files are synced.
	SyncFolderPath string `env:"SYNC_FOLDER_PATH"`

	// Folder path on Yandex Disk that mirrors the local directory.
	CloudFolderName string `env:"CLOUD_FOLDER_NAME"`

	// OAuth token for the Yandex Disk API.
	YandexToken string `env:"YANDEX_TOKEN"`

	// Interval between steady-state sync passes. Accepts a Go duration
	// ("30s", "5m") or a bare number of seconds ("30").
	SyncPeriodRaw string `env:"SYNC_PERIOD"`

	// File that receives the text log. Its parent directory is created
	// at startup when missing.
	LogFilePath string `env:"LOG_FILE_PATH"`

	// Optional YAML file listing glob patterns; matching file names are
	// excluded from scans.
	IgnoreFile string `env:"SYNC_IGNORE_FILE"`

	// Cycle journal database. Defaults to ~/.disksync/journal.db.
	JournalPath string `env:"JOURNAL_PATH"`

	// Environment controls console log verbosity.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// SyncPeriod is the parsed form of SyncPeriodRaw, populated by Load.
	SyncPeriod time.Duration

	// IgnorePatterns holds the patterns loaded from IgnoreFile.
	IgnorePatterns []string
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the access token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve the sync folder to an absolute path at startup so log
	// lines and remote-name derivation are stable regardless of the
	// working directory the process was launched from.
	absDir, err := filepath.Abs(cfg.SyncFolderPath)
	if err != nil {
		return nil, fmt.Errorf("resolving sync folder to absolute path: %w", err)
	}
	cfg.SyncFolderPath = absDir

	if cfg.JournalPath == "" {
		defaultPath, err := defaultJournalPath()
		if err != nil {
			return nil, fmt.Errorf("deriving journal path: %w", err)
		}
		cfg.JournalPath = defaultPath
	}

	if cfg.IgnoreFile != "" {
		patterns, err := loadIgnorePatterns(cfg.IgnoreFile)
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
		cfg.IgnorePatterns = patterns
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SyncFolderPath == "" {
		return fmt.Errorf("SYNC_FOLDER_PATH is required")
	}

	info, err := os.Stat(c.SyncFolderPath)
	if err != nil {
		return fmt.Errorf("sync folder does not exist: %s", c.SyncFolderPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("sync folder path is not a directory: %s", c.SyncFolderPath)
	}

	if c.CloudFolderName == "" {
		return fmt.Errorf("CLOUD_FOLDER_NAME is required")
	}

	if c.YandexToken == "" {
		return fmt.Errorf("YANDEX_TOKEN is required")
	}

	if c.SyncPeriodRaw == "" {
		return fmt.Errorf("SYNC_PERIOD is required")
	}

	period, err := parsePeriod(c.SyncPeriodRaw)
	if err != nil {
		return err
	}
	c.SyncPeriod = period

	if c.LogFilePath == "" {
		return fmt.Errorf("LOG_FILE_PATH is required")
	}

	return nil
}

// parsePeriod accepts either a Go duration string or a bare integer
// number of seconds, and rejects non-positive intervals.
func parsePeriod(raw string) (time.Duration, error) {
	var period time.Duration

	if secs, err := strconv.Atoi(raw); err == nil {
		period = time.Duration(secs) * time.Second
	} else {
		period, err = time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("SYNC_PERIOD must be a duration or seconds: %q", raw)
		}
	}

	if period <= 0 {
		return 0, fmt.Errorf("SYNC_PERIOD must be positive: %q", raw)
	}

	return period, nil
}

// ignoreFile is the YAML shape of the optional ignore-pattern file.
type ignoreFile struct {
	Ignore []string `yaml:"ignore"`
}

// loadIgnorePatterns reads glob patterns from a YAML file and validates
// each against doublestar syntax so bad patterns fail at startup rather
// than silently matching nothing.
func loadIgnorePatterns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var parsed ignoreFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, pattern := range parsed.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q in %s", pattern, path)
		}
	}

	return parsed.Ignore, nil
}

// defaultJournalPath returns ~/.disksync/journal.db.
func defaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".disksync", "journal.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
