package syncer

import "time"

// FileState is one locally observed file at a point in time. Name is
// the sole identity key; Size and ModTime are informational only, the
// fingerprint is authoritative for change detection.
type FileState struct {
	Name        string
	Path        string
	Fingerprint string
	Size        int64
	ModTime     time.Time
}

// Snapshot maps base file name to state for every file in the watched
// directory that was successfully read during one scan. Files that
// failed to read are absent, not represented as error entries.
type Snapshot map[string]FileState
