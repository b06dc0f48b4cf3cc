package model

import "time"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// ReasonBlockedByDependency is the fixed error text used when a Task is
// cancelled because a dependency failed or was itself cancelled.
const ReasonBlockedByDependency = "Blocked by failed dependencies"

// ReasonGoalComplete is the fixed error text used when a Task is
// cancelled because a Judgement declared the goal already complete.
const ReasonGoalComplete = "Goal already complete"

// Task is a unit of work inside a Run, executed by at most one Worker at a
// time. Dependencies always resolve to Task ids within the same Run.
type Task struct {
	ID           string     `yaml:"id" json:"id"`
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description" json:"description"`
	Status       TaskStatus `yaml:"status" json:"status"`
	Priority     int        `yaml:"priority" json:"priority"`
	Dependencies []string   `yaml:"dependencies" json:"dependencies"`
	WorkerID     string     `yaml:"worker_id,omitempty" json:"worker_id,omitempty"`
	Result       string     `yaml:"result,omitempty" json:"result,omitempty"`
	Error        string     `yaml:"error,omitempty" json:"error,omitempty"`
	SpawnedBy    string     `yaml:"spawned_by,omitempty" json:"spawned_by,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at" json:"created_at"`
	StartedAt    *time.Time `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt  *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`

	// seq records creation order within the Run, used to break priority
	// ties deterministically. Unexported so yaml never serializes it; it
	// is reassigned by the Run on load from list position.
	seq int
}

// Seq returns the task's creation-order sequence number.
func (t *Task) Seq() int { return t.seq }

// SetSeq sets the task's creation-order sequence number. Called by Run
// bookkeeping (AddTask, and the store after a load) to keep tie-breaking
// stable; never part of the persisted record.
func (t *Task) SetSeq(n int) { t.seq = n }

// IsTerminal reports whether the task has reached a status from which it
// never transitions again.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// Ready reports whether t is pending and every dependency in depStatus has
// reached TaskCompleted. depStatus must contain an entry for every
// dependency id; a missing entry is treated as not-ready.
func (t *Task) Ready(depStatus map[string]TaskStatus) bool {
	if t.Status != TaskPending {
		return false
	}
	for _, dep := range t.Dependencies {
		if depStatus[dep] != TaskCompleted {
			return false
		}
	}
	return true
}

// BlockedBy reports whether any of t's dependencies are failed or
// cancelled, which makes t permanently unreachable.
func (t *Task) BlockedBy(depStatus map[string]TaskStatus) bool {
	for _, dep := range t.Dependencies {
		switch depStatus[dep] {
		case TaskFailed, TaskCancelled:
			return true
		}
	}
	return false
}

// Start transitions the task to in_progress, recording the worker and
// start time. Callers must hold the owning Run's lock.
func (t *Task) Start(workerID string, now time.Time) {
	t.Status = TaskInProgress
	t.WorkerID = workerID
	t.StartedAt = &now
}

// Complete transitions the task to completed with the given result.
func (t *Task) Complete(result string, now time.Time) {
	t.Status = TaskCompleted
	t.Result = result
	t.CompletedAt = &now
}

// Fail transitions the task to failed with the given error.
func (t *Task) Fail(errMsg string, now time.Time) {
	t.Status = TaskFailed
	t.Error = errMsg
	t.CompletedAt = &now
}

// Cancel transitions the task to cancelled with the given reason.
// Cancelled is terminal: a task already cancelled is left untouched.
func (t *Task) Cancel(reason string, now time.Time) {
	if t.Status == TaskCancelled {
		return
	}
	t.Status = TaskCancelled
	t.Error = reason
	t.CompletedAt = &now
}

// Revert rolls an in-progress task back to pending, clearing StartedAt and
// WorkerID. Used by pause/stop/abort and by store reconciliation on load.
func (t *Task) Revert() {
	t.Status = TaskPending
	t.WorkerID = ""
	t.StartedAt = nil
}
