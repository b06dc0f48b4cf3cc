// Package model defines the Run/Task/Judgement/Worker data model shared by
// every component of the orchestration core: the entities, their
// lifecycles, and the invariants that hold across them (spec.md §3).
package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RunStatus is one state in the Run lifecycle state machine (spec.md §4.2).
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunPlanning  RunStatus = "planning"
	RunExecuting RunStatus = "executing"
	RunJudging   RunStatus = "judging"
	RunPaused    RunStatus = "paused"
	RunStopped   RunStatus = "stopped"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ErrIllegalTransition is returned when a Run status change is attempted
// from a state that does not permit it.
var ErrIllegalTransition = errors.New("illegal run state transition")

// legalFrom enumerates, for each requested transition, the statuses it may
// originate from. This is consulted by CanTransitionTo/TransitionTo so the
// rules in spec.md §4.2 live in exactly one place.
var legalFrom = map[RunStatus][]RunStatus{
	RunPlanning:  {RunIdle, RunPaused},
	RunExecuting: {RunPlanning, RunJudging, RunPaused},
	RunJudging:   {RunExecuting},
	RunPaused:    {RunPlanning, RunExecuting, RunJudging, RunStopped},
	RunStopped:   {RunIdle, RunPlanning, RunExecuting, RunJudging, RunPaused},
	RunCompleted: {RunExecuting, RunJudging},
	RunFailed:    {RunPlanning, RunExecuting, RunJudging},
}

// CanTransitionTo reports whether moving from 'from' to 'to' is legal.
func CanTransitionTo(from, to RunStatus) bool {
	for _, ok := range legalFrom[to] {
		if ok == from {
			return true
		}
	}
	return false
}

// Run is the top-level unit of orchestration: one attempt to satisfy a
// goal over a target directory. A Run owns its Tasks, Judgements, and
// Workers exclusively.
type Run struct {
	mu sync.Mutex

	ID          string       `yaml:"id" json:"id"`
	Goal        string       `yaml:"goal" json:"goal"`
	TargetDir   string       `yaml:"target_dir" json:"target_dir"`
	Status      RunStatus    `yaml:"status" json:"status"`
	Analysis    string       `yaml:"analysis" json:"analysis"`
	Tasks       []*Task      `yaml:"tasks" json:"tasks"`
	Judgements  []*Judgement `yaml:"judgements" json:"judgements"`
	Workers     []*Worker    `yaml:"workers" json:"workers"`
	MaxWorkers  int          `yaml:"max_workers" json:"max_workers"`
	CreatedAt   time.Time    `yaml:"created_at" json:"created_at"`
	CompletedAt *time.Time   `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	Error       string       `yaml:"error,omitempty" json:"error,omitempty"`

	nextSeq int `yaml:"-"`
}

// New creates a Run in the idle state. maxWorkers is clamped to [1,10]
// with a default of 3 when zero (spec.md §4.2).
func New(id, goal, targetDir string, maxWorkers int, now time.Time) *Run {
	return &Run{
		ID:         id,
		Goal:       goal,
		TargetDir:  targetDir,
		Status:     RunIdle,
		MaxWorkers: ClampMaxWorkers(maxWorkers),
		CreatedAt:  now,
	}
}

// ClampMaxWorkers applies the [1,10]/default-3 rule from spec.md §4.2.
func ClampMaxWorkers(n int) int {
	if n == 0 {
		return 3
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// Lock acquires the Run's mutual-exclusion guard. External callers (Run
// Manager methods such as Stop/Pause) hold this briefly while flipping
// status; the Scheduler holds it for every mutation it makes to the Run
// (spec.md §5).
func (r *Run) Lock()   { r.mu.Lock() }
func (r *Run) Unlock() { r.mu.Unlock() }

// TransitionTo moves the Run to the given status if legal, returning
// ErrIllegalTransition otherwise. Callers must hold the lock.
func (r *Run) TransitionTo(to RunStatus) error {
	if !CanTransitionTo(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

// AddTask appends a task, assigning it the next sequence number for
// priority tie-breaking. Callers must hold the lock.
func (r *Run) AddTask(t *Task) {
	t.SetSeq(r.nextSeq)
	r.nextSeq++
	r.Tasks = append(r.Tasks, t)
}

// ReindexSeq reassigns sequence numbers from current task order. Called
// once after a Run Store load, since seq is not persisted.
func (r *Run) ReindexSeq() {
	for i, t := range r.Tasks {
		t.SetSeq(i)
	}
	r.nextSeq = len(r.Tasks)
}

// TaskByID returns the task with the given id, or nil.
func (r *Run) TaskByID(id string) *Task {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TaskByTitle returns the first task whose title matches 'title'
// case-insensitively, or nil. Used to resolve planner/judge dependency
// titles to ids (spec.md §4.3).
func (r *Run) TaskByTitle(title string) *Task {
	for _, t := range r.Tasks {
		if equalFold(t.Title, title) {
			return t
		}
	}
	return nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// TaskStatusMap returns a snapshot of every task id to its current
// status, used by Ready/BlockedBy dependency computations.
func (r *Run) TaskStatusMap() map[string]TaskStatus {
	m := make(map[string]TaskStatus, len(r.Tasks))
	for _, t := range r.Tasks {
		m[t.ID] = t.Status
	}
	return m
}

// WorkerByID returns the worker with the given id, or nil.
func (r *Run) WorkerByID(id string) *Worker {
	for _, w := range r.Workers {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// RunningWorkerCount returns the number of workers currently in status
// running. Must never exceed MaxWorkers (spec.md §8 invariant).
func (r *Run) RunningWorkerCount() int {
	n := 0
	for _, w := range r.Workers {
		if w.Status == WorkerRunning {
			n++
		}
	}
	return n
}

// PendingTasks returns every task currently pending.
func (r *Run) PendingTasks() []*Task {
	var out []*Task
	for _, t := range r.Tasks {
		if t.Status == TaskPending {
			out = append(out, t)
		}
	}
	return out
}

// InProgressTasks returns every task currently in_progress.
func (r *Run) InProgressTasks() []*Task {
	var out []*Task
	for _, t := range r.Tasks {
		if t.Status == TaskInProgress {
			out = append(out, t)
		}
	}
	return out
}

// Snapshot returns a deep-enough copy of the Run for safe reading outside
// the lock (spec.md §5: "Readers... obtain a defensive copy"). Task,
// Worker, and Judgement pointers are copied so callers cannot mutate the
// live Run's fields, but nested slices are shared read-only.
func (r *Run) Snapshot() *Run {
	r.Lock()
	defer r.Unlock()

	cp := &Run{
		ID:         r.ID,
		Goal:       r.Goal,
		TargetDir:  r.TargetDir,
		Status:     r.Status,
		Analysis:   r.Analysis,
		MaxWorkers: r.MaxWorkers,
		CreatedAt:  r.CreatedAt,
		Error:      r.Error,
		nextSeq:    r.nextSeq,
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	for _, t := range r.Tasks {
		tc := *t
		cp.Tasks = append(cp.Tasks, &tc)
	}
	for _, j := range r.Judgements {
		jc := *j
		cp.Judgements = append(cp.Judgements, &jc)
	}
	for _, w := range r.Workers {
		wc := *w
		cp.Workers = append(cp.Workers, &wc)
	}
	return cp
}
