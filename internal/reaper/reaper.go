// Package reaper implements the Lifecycle Reaper: the process-level
// hooks that reconcile Run state at startup, save every known Run on a
// fixed interval, and stop every active Run on shutdown (spec.md §4.4).
package reaper

import (
	"context"
	"time"

	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/runmgr"
	"github.com/coderun-dev/fleet/internal/worker"
)

// Reaper owns the periodic save ticker and the shutdown sequence for a
// Run Manager.
type Reaper struct {
	mgr      *runmgr.Manager
	worker   worker.Adapter
	interval time.Duration
	log      *logger.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a Reaper. interval is the periodic save cadence (spec §4.4
// default is 10 seconds, set by config.SaveIntervalSeconds).
func New(mgr *runmgr.Manager, w worker.Adapter, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reaper{
		mgr:      mgr,
		worker:   w,
		interval: interval,
		log:      logger.WithField("component", "reaper"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Startup loads every persisted Run into the Run Manager. Any Run left
// in-flight by an unclean shutdown was already forced to paused by the
// Store's reconciliation during LoadAll.
func (r *Reaper) Startup() error {
	if err := r.mgr.Bootstrap(); err != nil {
		return err
	}
	r.log.Info("run manager bootstrapped from store")
	return nil
}

// RunPeriodicSave blocks, saving every known Run on r.interval until
// Shutdown is called. Intended to run on its own goroutine.
func (r *Reaper) RunPeriodicSave() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mgr.SaveAll()
		case <-r.stop:
			return
		}
	}
}

// Shutdown stops every active Run, saves final state, and cancels every
// worker still running process-wide. ctx bounds how long it waits for
// active runs to actually exit.
func (r *Reaper) Shutdown(ctx context.Context) {
	close(r.stop)

	r.mgr.ShutdownAll()

	for r.mgr.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			r.log.Warn("shutdown timed out waiting for active runs to stop")
			r.worker.CancelAll()
			r.mgr.SaveAll()
			return
		case <-time.After(50 * time.Millisecond):
		}
	}

	r.worker.CancelAll()
	r.mgr.SaveAll()

	select {
	case <-r.done:
	case <-ctx.Done():
	}
}
