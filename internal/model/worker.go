package model

import "time"

// WorkerStatus is the lifecycle state of a Worker.
type WorkerStatus string

const (
	WorkerRunning   WorkerStatus = "running"
	WorkerCompleted WorkerStatus = "completed"
	WorkerFailed    WorkerStatus = "failed"
)

// ActivityType classifies one entry in a Worker's activity log.
type ActivityType string

const (
	ActivityToolCall   ActivityType = "tool_call"
	ActivityFileEdit   ActivityType = "file_edit"
	ActivityFileCreate ActivityType = "file_create"
	ActivityBash       ActivityType = "bash"
	ActivityText       ActivityType = "text"
	ActivityError      ActivityType = "error"
	ActivityThinking   ActivityType = "thinking"
)

// ActivityEntry is one structured record of what a Worker did.
type ActivityEntry struct {
	Type      ActivityType `yaml:"type" json:"type"`
	Summary   string       `yaml:"summary" json:"summary"`
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp"`
}

// Worker is a record of one execution of the external agent loop against
// a single Task.
type Worker struct {
	ID          string          `yaml:"id" json:"id"`
	TaskID      string          `yaml:"task_id" json:"task_id"`
	Status      WorkerStatus    `yaml:"status" json:"status"`
	Logs        []string        `yaml:"logs" json:"logs"`
	Activity    []ActivityEntry `yaml:"activity" json:"activity"`
	StartedAt   time.Time       `yaml:"started_at" json:"started_at"`
	CompletedAt *time.Time      `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// AppendLog appends one log line to the worker's log.
func (w *Worker) AppendLog(line string) {
	w.Logs = append(w.Logs, line)
}

// AppendActivity appends one structured activity entry.
func (w *Worker) AppendActivity(entry ActivityEntry) {
	w.Activity = append(w.Activity, entry)
}

// Finish transitions the worker to a terminal status.
func (w *Worker) Finish(status WorkerStatus, now time.Time) {
	w.Status = status
	w.CompletedAt = &now
}

// TruncateHistory keeps only the most recent n entries of Logs and
// Activity, matching the Run Store's on-write bound (spec §4.4).
func (w *Worker) TruncateHistory(n int) {
	if len(w.Logs) > n {
		w.Logs = append([]string(nil), w.Logs[len(w.Logs)-n:]...)
	}
	if len(w.Activity) > n {
		w.Activity = append([]ActivityEntry(nil), w.Activity[len(w.Activity)-n:]...)
	}
}

// Judgement is an immutable record of one judge invocation.
type Judgement struct {
	ID           string    `yaml:"id" json:"id"`
	TaskID       string    `yaml:"task_id" json:"task_id"`
	Assessment   string    `yaml:"assessment" json:"assessment"`
	NewTaskIDs   []string  `yaml:"new_task_ids" json:"new_task_ids"`
	GoalComplete bool      `yaml:"goal_complete" json:"goal_complete"`
	Timestamp    time.Time `yaml:"timestamp" json:"timestamp"`
}
