package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Loop drives the engine: one initial sync at startup, then one
// steady-state pass per period until the context is cancelled. All
// work happens on the caller's goroutine.
type Loop struct {
	engine *Engine
	period time.Duration
	logger *slog.Logger
}

// NewLoop creates a run loop over engine with the given period.
func NewLoop(engine *Engine, period time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		engine: engine,
		period: period,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled (clean shutdown, nil return) or a
// sync pass fails with something other than cancellation, which is
// fatal by policy: per-file errors never escape a pass, so anything
// that does is unknown and terminates the process.
func (l *Loop) Run(ctx context.Context) error {
	if _, err := l.engine.InitialSync(ctx); err != nil {
		if isContextDone(err) {
			l.logger.Info("shutdown during initial sync")
			return nil
		}
		return fmt.Errorf("initial sync: %w", err)
	}

	l.logger.Info("entering sync loop", slog.Duration("period", l.period))

	timer := time.NewTimer(l.period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("shutting down")
			return nil
		case <-timer.C:
			if _, err := l.engine.SyncOnce(ctx); err != nil {
				if isContextDone(err) {
					l.logger.Info("shutdown during sync pass")
					return nil
				}
				return fmt.Errorf("sync cycle: %w", err)
			}
			timer.Reset(l.period)
		}
	}
}

// isContextDone reports whether err came from context termination,
// whichever way the caller's context ended.
func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
