package syncer

import (
	"context"
	"time"
)

//go:generate mockgen -source=storage.go -destination=mock_storage.go -package=syncer

// RemoteFile is one file in the cloud folder as reported by the remote
// listing. Used for observability logging only, never for diffing.
type RemoteFile struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Storage is the capability interface the engine drives. All
// operations are idempotent: Upload overwrites an existing object,
// Delete of an absent object succeeds. name is the snapshot key and
// the remote object name; callers must pass the same name a later
// Delete would use, so normalized local names round-trip.
type Storage interface {
	// Upload stores the file at localPath remotely under name.
	Upload(ctx context.Context, localPath, name string) error
	// Overwrite replaces the remote copy; semantically upload-with-replace.
	Overwrite(ctx context.Context, localPath, name string) error
	// Delete removes the remote object by base name.
	Delete(ctx context.Context, name string) error
	// List reports the current remote folder contents.
	List(ctx context.Context) (map[string]RemoteFile, error)
}

// Journal receives one record per completed sync pass. Implementations
// must tolerate being called from the sync loop's single goroutine
// only; a nil Journal on the engine disables journaling.
type Journal interface {
	Append(report *CycleReport) error
}
