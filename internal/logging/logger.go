package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// logFilePerm is the permission mode for the log file.
const logFilePerm = 0o644

// OpenLogFile opens the log file for appending, creating its parent
// directory if needed. The caller owns the returned file.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return file, nil
}

// NewLogger creates the process logger. Console output is tinted when
// stdout is a terminal; the log file always gets plain text at info
// level and above. Development enables debug on the console.
func NewLogger(env string, logFile io.Writer) *slog.Logger {
	consoleLevel := slog.LevelInfo
	if env != "production" {
		consoleLevel = slog.LevelDebug
	}

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	if logFile == nil {
		return slog.New(consoleHandler)
	}

	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(newMultiHandler(consoleHandler, fileHandler))
}
