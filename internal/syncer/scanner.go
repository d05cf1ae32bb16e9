package syncer

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

// Scanner enumerates the direct children of the watched directory and
// produces a Snapshot. It never recurses into subdirectories. Entries
// are classified by stat, so a symlink whose target is a regular file
// is scanned like any other file.
type Scanner struct {
	dir    string
	ignore []string
	logger *slog.Logger
}

// NewScanner creates a scanner for dir. ignorePatterns are doublestar
// globs matched against base file names; matching files are invisible
// to every scan.
func NewScanner(dir string, ignorePatterns []string, logger *slog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		ignore: ignorePatterns,
		logger: logger,
	}
}

// Dir returns the watched directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan reads the directory and fingerprints every regular file in it.
// A file that cannot be read is logged and omitted; it will be retried
// naturally on the next cycle. When the directory itself cannot be
// listed, Scan logs the error and returns an empty Snapshot rather
// than failing: the engine then sees "nothing observed this cycle",
// which deletes every previously cached file remotely.
func (s *Scanner) Scan() Snapshot {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("listing sync folder failed, treating as empty",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()),
		)
		return Snapshot{}
	}

	snapshot := make(Snapshot, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Normalize to NFC so names written on macOS (NFD) key the same
		// cache entry everywhere.
		name := norm.NFC.String(entry.Name())

		if s.ignored(name) {
			s.logger.Debug("skipping ignored file", slog.String("name", name))
			continue
		}

		path := filepath.Join(s.dir, entry.Name())

		// Stat follows symlinks, so a link to a regular file is synced
		// as the file it points at; broken links fail here and are
		// skipped.
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Error("stat failed, skipping file this cycle",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		fingerprint, err := Fingerprint(path)
		if err != nil {
			s.logger.Error("fingerprint failed, skipping file this cycle",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
			continue
		}

		snapshot[name] = FileState{
			Name:        name,
			Path:        path,
			Fingerprint: fingerprint,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		}
	}

	return snapshot
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
