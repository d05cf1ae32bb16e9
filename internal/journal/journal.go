// Package journal persists a per-cycle sync history in a bbolt
// database, one record per completed pass. The history is purely
// observational: the engine never reads it back for diff decisions.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alexjbarnes/disksync/internal/syncer"
)

const (
	// dirPerm is the permission mode for the journal directory.
	dirPerm = fs.FileMode(0o700)

	// filePerm is the permission mode for the journal database file.
	filePerm = fs.FileMode(0o600)

	// openTimeout is the maximum time to wait for the bolt file lock.
	openTimeout = 5 * time.Second
)

var cyclesBucket = []byte("cycles")

// Failure is one failed remote action inside a cycle.
type Failure struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Record is the persisted form of one sync pass.
type Record struct {
	Seq         uint64    `json:"seq"`
	Initial     bool      `json:"initial"`
	Started     time.Time `json:"started"`
	DurationMS  int64     `json:"duration_ms"`
	Scanned     int       `json:"scanned"`
	Unchanged   int       `json:"unchanged"`
	Uploaded    int       `json:"uploaded"`
	Overwritten int       `json:"overwritten"`
	Deleted     int       `json:"deleted"`
	Failed      int       `json:"failed"`
	BytesSent   int64     `json:"bytes_sent"`
	RemoteFiles int       `json:"remote_files"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Journal wraps the bbolt database holding cycle records.
type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal database at path, creating the
// parent directory when missing.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cyclesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cycles bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database file.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores one cycle report under the next monotonic sequence key.
func (j *Journal) Append(report *syncer.CycleReport) error {
	record := fromReport(report)

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cyclesBucket)

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating sequence: %w", err)
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}

		return bucket.Put(itob(seq), data)
	})
}

// Last returns up to n most recent records, newest first.
func (j *Journal) Last(n int) ([]Record, error) {
	var records []Record

	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(cyclesBucket).Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < n; k, v = cursor.Prev() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("decoding record: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func fromReport(report *syncer.CycleReport) Record {
	uploaded, overwritten, deleted, failed := report.Counts()

	record := Record{
		Seq:         report.Seq,
		Initial:     report.Initial,
		Started:     report.Started,
		DurationMS:  report.Duration.Milliseconds(),
		Scanned:     report.Scanned,
		Unchanged:   report.Unchanged,
		Uploaded:    uploaded,
		Overwritten: overwritten,
		Deleted:     deleted,
		Failed:      failed,
		BytesSent:   report.BytesSent,
		RemoteFiles: report.RemoteFiles,
	}

	for _, outcome := range report.Outcomes {
		if outcome.Err == nil {
			continue
		}
		record.Failures = append(record.Failures, Failure{
			Name:   outcome.Name,
			Action: string(outcome.Action),
			Error:  outcome.Err.Error(),
		})
	}

	return record
}

// itob returns a big-endian encoding of v so bbolt keys sort in
// insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
