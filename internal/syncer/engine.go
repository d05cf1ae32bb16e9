package syncer

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// Action is the kind of remote operation the diff decided on.
type Action string

const (
	ActionUpload    Action = "upload"
	ActionOverwrite Action = "overwrite"
	ActionDelete    Action = "delete"
)

// Change is one planned remote operation. Path is the local file path
// for uploads and overwrites; deletes carry only the name.
type Change struct {
	Name   string
	Action Action
	Path   string
}

// Outcome records the result of attempting one Change. A non-nil Err
// means the action failed; the rest of the cycle is unaffected.
type Outcome struct {
	Name   string
	Action Action
	Err    error
}

// CycleReport summarizes one completed sync pass.
type CycleReport struct {
	Seq       uint64
	Initial   bool
	Started   time.Time
	Duration  time.Duration
	Scanned   int
	Unchanged int
	BytesSent int64
	// RemoteFiles is the remote listing size, or -1 when the listing
	// itself failed. Observability only.
	RemoteFiles int
	Outcomes    []Outcome
}

// Counts tallies outcomes by action, splitting out failures.
func (r *CycleReport) Counts() (uploaded, overwritten, deleted, failed int) {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		switch o.Action {
		case ActionUpload:
			uploaded++
		case ActionOverwrite:
			overwritten++
		case ActionDelete:
			deleted++
		}
	}
	return uploaded, overwritten, deleted, failed
}

// Diff compares the current snapshot against the cached one and plans
// the remote operations: files absent from the cache are uploaded,
// files with a different fingerprint are overwritten, files present
// only in the cache are deleted. Actions are independent of each
// other; a rename shows up as one delete plus one upload. Output is
// name-ordered (uploads and overwrites first, then deletes) so cycles
// are deterministic.
func Diff(cache, current Snapshot) []Change {
	var changes []Change

	for name, state := range current {
		cached, known := cache[name]
		switch {
		case !known:
			changes = append(changes, Change{Name: name, Action: ActionUpload, Path: state.Path})
		case cached.Fingerprint != state.Fingerprint:
			changes = append(changes, Change{Name: name, Action: ActionOverwrite, Path: state.Path})
		}
	}

	for name := range cache {
		if _, still := current[name]; !still {
			changes = append(changes, Change{Name: name, Action: ActionDelete})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if (changes[i].Action == ActionDelete) != (changes[j].Action == ActionDelete) {
			return changes[j].Action == ActionDelete
		}
		return changes[i].Name < changes[j].Name
	})

	return changes
}

// Engine owns the sync cache and drives the storage client. It is
// built once with its collaborators and used from a single goroutine;
// the cache is only ever touched by that goroutine, so no locking.
type Engine struct {
	storage Storage
	scanner *Scanner
	journal Journal
	logger  *slog.Logger

	cache Snapshot
	seq   uint64
}

// NewEngine creates an engine with an empty cache. journal may be nil.
func NewEngine(storage Storage, scanner *Scanner, journal Journal, logger *slog.Logger) *Engine {
	return &Engine{
		storage: storage,
		scanner: scanner,
		journal: journal,
		logger:  logger,
		cache:   Snapshot{},
	}
}

// InitialSync runs the startup pass: the cache is empty, so every
// scanned file classifies as new and is uploaded.
func (e *Engine) InitialSync(ctx context.Context) (*CycleReport, error) {
	e.logger.Info("starting initial sync", slog.String("dir", e.scanner.Dir()))
	return e.pass(ctx, true)
}

// SyncOnce runs one steady-state pass: scan, diff against the cache,
// apply the planned actions, then replace the cache with the scan.
func (e *Engine) SyncOnce(ctx context.Context) (*CycleReport, error) {
	return e.pass(ctx, false)
}

func (e *Engine) pass(ctx context.Context, initial bool) (*CycleReport, error) {
	started := time.Now()

	current := e.scanner.Scan()
	changes := Diff(e.cache, current)

	report := &CycleReport{
		Initial:     initial,
		Started:     started,
		Scanned:     len(current),
		RemoteFiles: -1,
	}

	// Remote listing is observability only: logged, never reconciled
	// against the cache or the scan.
	if remote, err := e.storage.List(ctx); err != nil {
		e.logger.Warn("remote listing failed", slog.String("error", err.Error()))
	} else {
		report.RemoteFiles = len(remote)
	}

	for _, change := range changes {
		// A cancelled context aborts the pass cleanly: no partial cache
		// update, remaining actions are re-planned on restart.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := Outcome{Name: change.Name, Action: change.Action}
		outcome.Err = e.apply(ctx, change)

		if outcome.Err != nil {
			e.logger.Error("remote action failed",
				slog.String("action", string(change.Action)),
				slog.String("name", change.Name),
				slog.String("error", outcome.Err.Error()),
			)
		} else {
			e.logAction(change, current)
			if change.Action != ActionDelete {
				report.BytesSent += current[change.Name].Size
			}
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}

	// The cache always becomes the scan, even when individual actions
	// failed: a failed upload still marks the name as known and is not
	// retried until its content changes again. This matches the
	// behavior of replacing the cache wholesale after every pass.
	e.cache = current

	e.seq++
	report.Seq = e.seq
	report.Unchanged = countUnchanged(changes, current)
	report.Duration = time.Since(started)

	e.logReport(report)

	if e.journal != nil {
		if err := e.journal.Append(report); err != nil {
			e.logger.Warn("journal append failed", slog.String("error", err.Error()))
		}
	}

	return report, nil
}

func (e *Engine) apply(ctx context.Context, change Change) error {
	switch change.Action {
	case ActionUpload:
		return e.storage.Upload(ctx, change.Path, change.Name)
	case ActionOverwrite:
		return e.storage.Overwrite(ctx, change.Path, change.Name)
	default:
		return e.storage.Delete(ctx, change.Name)
	}
}

func (e *Engine) logAction(change Change, current Snapshot) {
	switch change.Action {
	case ActionUpload:
		e.logger.Info("file uploaded",
			slog.String("name", change.Name),
			slog.String("size", humanize.Bytes(uint64(current[change.Name].Size))),
		)
	case ActionOverwrite:
		e.logger.Info("file updated",
			slog.String("name", change.Name),
			slog.String("size", humanize.Bytes(uint64(current[change.Name].Size))),
		)
	case ActionDelete:
		e.logger.Info("remote file deleted", slog.String("name", change.Name))
	}
}

func (e *Engine) logReport(report *CycleReport) {
	uploaded, overwritten, deleted, failed := report.Counts()
	e.logger.Info("sync pass complete",
		slog.Uint64("seq", report.Seq),
		slog.Bool("initial", report.Initial),
		slog.Int("scanned", report.Scanned),
		slog.Int("uploaded", uploaded),
		slog.Int("overwritten", overwritten),
		slog.Int("deleted", deleted),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("failed", failed),
		slog.Int("remote_files", report.RemoteFiles),
		slog.String("sent", humanize.Bytes(uint64(report.BytesSent))),
		slog.Duration("took", report.Duration),
	)
}

// countUnchanged is the number of scanned files the diff left alone.
func countUnchanged(changes []Change, current Snapshot) int {
	touched := 0
	for _, c := range changes {
		if c.Action != ActionDelete {
			touched++
		}
	}
	return len(current) - touched
}
