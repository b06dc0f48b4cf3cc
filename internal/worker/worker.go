// Package worker defines the external worker-agent boundary: the core
// only launches, cancels, and awaits a worker; it never interprets the
// agentic loop that runs inside one.
package worker

import (
	"context"

	"github.com/coderun-dev/fleet/internal/model"
)

// Result is what a worker reports back on termination. The Scheduler
// applies it to the Task and Worker records under the owning Run's lock.
type Result struct {
	Status     model.WorkerStatus
	TaskResult string
	TaskError  string
}

// CancelFunc requests prompt termination of one spawned worker. Calling
// it more than once is safe.
type CancelFunc func()

// Handle is what Spawn returns: the freshly created Worker record, a
// channel that receives exactly one Result when the worker terminates,
// and a cancel function for that worker.
type Handle struct {
	Worker *model.Worker
	Done   <-chan Result
	Cancel CancelFunc
}

// Adapter is the interface the Scheduler consumes to reach the external
// worker-agent capability.
type Adapter interface {
	// Spawn starts a worker executing task against targetDir.
	Spawn(ctx context.Context, task *model.Task, targetDir string) (*Handle, error)

	// Cancel requests termination of one active worker by id. A no-op if
	// the worker is not active.
	Cancel(workerID string)

	// CancelAll requests termination of every active worker, used by the
	// Lifecycle Reaper on shutdown. Pause/stop aborts use Cancel per worker.
	CancelAll()

	// ListActive returns the ids of workers currently running.
	ListActive() []string
}
