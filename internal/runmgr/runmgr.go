// Package runmgr implements the Run Manager: the façade that owns every
// known Run, starts and stops its Scheduler, and enforces the Run
// lifecycle's legal transitions at the boundary between external
// callers (the CLI, the HTTP surface) and the orchestration core
// (spec.md §4.2, §4.5).
package runmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coderun-dev/fleet/internal/config"
	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/scheduler"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

// ErrRunNotFound is returned when a caller names a run id the Manager
// does not know about.
var ErrRunNotFound = errors.New("run not found")

// ErrTargetDirMissing is returned by Create when targetDir does not
// exist on disk.
var ErrTargetDirMissing = errors.New("target directory does not exist")

// active tracks the running pieces of a started Run: the abort handle
// used to request pause/stop, and the context cancel func backing it.
type active struct {
	abort  *scheduler.AbortHandle
	cancel func()
}

// Manager owns every known Run and the Scheduler driving each one that
// is currently active.
type Manager struct {
	mu      sync.RWMutex
	runs    map[string]*model.Run
	actives map[string]*active

	planner planner.Adapter
	worker  worker.Adapter
	bus     *eventbus.Bus
	store   *store.Store
	cfg     *config.Config
}

// New creates a Manager. The Store, Planner Adapter, and Worker Adapter
// are shared across every Run the Manager starts.
func New(p planner.Adapter, w worker.Adapter, bus *eventbus.Bus, st *store.Store, cfg *config.Config) *Manager {
	return &Manager{
		runs:    make(map[string]*model.Run),
		actives: make(map[string]*active),
		planner: p,
		worker:  w,
		bus:     bus,
		store:   st,
		cfg:     cfg,
	}
}

// Bootstrap loads every persisted Run from the Store into memory. It is
// the Lifecycle Reaper's startup hook (spec.md §4.4); any Run left
// in-flight by an unclean shutdown has already been reconciled to
// paused by the Store.
func (m *Manager) Bootstrap() error {
	runs, err := m.store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range runs {
		m.runs[r.ID] = r
	}
	return nil
}

// Create registers a new idle Run for goal over targetDir and persists
// it. It does not start execution; call Start to begin planning.
func (m *Manager) Create(goal, targetDir string, maxWorkers int) (*model.Run, error) {
	if _, err := os.Stat(targetDir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetDirMissing, targetDir)
	}

	if maxWorkers == 0 && m.cfg != nil {
		maxWorkers = m.cfg.DefaultMaxWorkers
	}
	run := model.New(uuid.NewString(), goal, targetDir, maxWorkers, time.Now())

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	if err := m.store.Save(run); err != nil {
		logger.WithRun(run.ID, "").WithField("error", err.Error()).Error("failed to persist new run")
	}
	m.publish(model.EventRunCreated, run.Snapshot())

	return run, nil
}

// Start begins (or resumes) execution of runID. Legal only from idle or
// paused; returns model.ErrIllegalTransition otherwise.
func (m *Manager) Start(runID string) error {
	run, err := m.getRun(runID)
	if err != nil {
		return err
	}

	run.Lock()
	ok := run.Status == model.RunIdle || run.Status == model.RunPaused
	run.Unlock()
	if !ok {
		return fmt.Errorf("%w: run %s is not idle or paused", model.ErrIllegalTransition, runID)
	}

	m.mu.Lock()
	if _, running := m.actives[runID]; running {
		m.mu.Unlock()
		return fmt.Errorf("%w: run %s is already active", model.ErrIllegalTransition, runID)
	}
	abort := scheduler.NewAbortHandle()
	ctx, cancel := context.WithCancel(context.Background())
	m.actives[runID] = &active{abort: abort, cancel: cancel}
	m.mu.Unlock()

	sched := scheduler.New(run, m.planner, m.worker, m.bus, m.store)
	go func() {
		defer cancel()
		sched.Run(ctx, abort)
		m.mu.Lock()
		delete(m.actives, runID)
		m.mu.Unlock()
	}()

	return nil
}

// Pause requests a graceful pause of a running run. It is a no-op error
// if the run has no active Scheduler.
func (m *Manager) Pause(runID string) error {
	return m.abortActive(runID, scheduler.AbortPause)
}

// Stop requests a graceful stop of a running run.
func (m *Manager) Stop(runID string) error {
	return m.abortActive(runID, scheduler.AbortStop)
}

func (m *Manager) abortActive(runID string, reason scheduler.AbortReason) error {
	m.mu.RLock()
	a, ok := m.actives[runID]
	m.mu.RUnlock()
	if !ok {
		if _, err := m.getRun(runID); err != nil {
			return err
		}
		return fmt.Errorf("%w: run %s has no active scheduler", model.ErrIllegalTransition, runID)
	}
	a.abort.Fire(reason)
	return nil
}

// Resume restarts a paused or stopped run. A stopped run with no active
// Scheduler is first reopened as paused with CompletedAt cleared; the
// restart then goes through Start's legal-transition check.
func (m *Manager) Resume(runID string) error {
	run, err := m.getRun(runID)
	if err != nil {
		return err
	}

	m.mu.RLock()
	_, running := m.actives[runID]
	m.mu.RUnlock()

	run.Lock()
	if run.Status == model.RunStopped && !running {
		_ = run.TransitionTo(model.RunPaused)
		run.CompletedAt = nil
	}
	run.Unlock()

	return m.Start(runID)
}

// Get returns a defensive snapshot of the named run.
func (m *Manager) Get(runID string) (*model.Run, error) {
	run, err := m.getRun(runID)
	if err != nil {
		return nil, err
	}
	return run.Snapshot(), nil
}

// List returns a snapshot of every known run, most recently created
// first.
func (m *Manager) List() []*model.Run {
	m.mu.RLock()
	runs := make([]*model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	snaps := make([]*model.Run, len(runs))
	for i, r := range runs {
		snaps[i] = r.Snapshot()
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps
}

// ActiveRunIDs returns the ids of every run currently driven by a
// Scheduler goroutine.
func (m *Manager) ActiveRunIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.actives))
	for id := range m.actives {
		ids = append(ids, id)
	}
	return ids
}

// ActiveCount reports how many runs currently have a live Scheduler.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actives)
}

// ShutdownAll fires a stop on every active run's abort handle, used by
// the Lifecycle Reaper's shutdown hook. It does not wait for the
// schedulers to exit; callers that need that should poll ActiveCount.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	actives := make([]*active, 0, len(m.actives))
	for _, a := range m.actives {
		actives = append(actives, a)
	}
	m.mu.RUnlock()

	for _, a := range actives {
		a.abort.Fire(scheduler.AbortStop)
	}
}

// SaveAll persists every known run, active or not. The Lifecycle
// Reaper's periodic ticker calls this (spec.md §4.4).
func (m *Manager) SaveAll() {
	m.mu.RLock()
	runs := make([]*model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	for _, r := range runs {
		if err := m.store.Save(r); err != nil {
			logger.WithRun(r.ID, "").WithField("error", err.Error()).Error("periodic save failed")
		}
	}
}

func (m *Manager) getRun(runID string) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

func (m *Manager) publish(t model.EventType, payload interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(model.Event{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
