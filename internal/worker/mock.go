package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coderun-dev/fleet/internal/model"
)

// ResultFunc computes the outcome a mock worker reports for a task.
// The default behavior (used when unset) always succeeds.
type ResultFunc func(task *model.Task) Result

// MockAdapter is a deterministic worker adapter used by tests and by
// the fleetctl commands, which always run against the mock adapters.
// Each spawned worker runs a short simulated
// delay on its own goroutine, then reports a scripted Result.
type MockAdapter struct {
	// Delay is how long a spawned worker runs before reporting its
	// result. Zero means "resolve on the next scheduler tick".
	Delay time.Duration

	// Result computes the outcome per task; nil means always succeed
	// with a canned result string.
	Result ResultFunc

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewMockAdapter creates a MockAdapter that completes every task
// immediately and successfully.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{active: make(map[string]context.CancelFunc)}
}

// Spawn starts a simulated worker for task.
func (m *MockAdapter) Spawn(ctx context.Context, task *model.Task, targetDir string) (*Handle, error) {
	workerID := uuid.NewString()
	w := &model.Worker{
		ID:        workerID,
		TaskID:    task.ID,
		Status:    model.WorkerRunning,
		StartedAt: time.Now(),
	}

	runCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.active == nil {
		m.active = make(map[string]context.CancelFunc)
	}
	m.active[workerID] = cancel
	m.mu.Unlock()

	done := make(chan Result, 1)

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.active, workerID)
			m.mu.Unlock()
		}()

		select {
		case <-runCtx.Done():
			done <- Result{Status: model.WorkerFailed, TaskError: "cancelled"}
			return
		case <-time.After(m.Delay):
		}

		w.AppendActivity(model.ActivityEntry{
			Type:      model.ActivityText,
			Summary:   "simulated execution for " + task.Title,
			Timestamp: time.Now(),
		})
		w.AppendLog("mock worker completed task " + task.Title)

		if m.Result != nil {
			done <- m.Result(task)
			return
		}
		done <- Result{Status: model.WorkerCompleted, TaskResult: "ok"}
	}()

	return &Handle{
		Worker: w,
		Done:   done,
		Cancel: func() { cancel() },
	}, nil
}

// Cancel cancels one active worker by id, if it exists.
func (m *MockAdapter) Cancel(workerID string) {
	m.mu.Lock()
	cancel, ok := m.active[workerID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll cancels every active worker.
func (m *MockAdapter) CancelAll() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.active))
	for _, c := range m.active {
		cancels = append(cancels, c)
	}
	m.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// ListActive returns the ids of currently running workers.
func (m *MockAdapter) ListActive() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}
