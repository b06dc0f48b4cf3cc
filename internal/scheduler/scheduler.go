// Package scheduler implements the Pipeline: the per-Run execution
// engine that selects ready tasks, enforces the worker parallelism cap,
// drives the serialized judge queue, detects terminal quiescence, and
// honors pause/stop aborts.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/resilience"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

// pollInterval bounds the "nothing running but pending tasks exist"
// sleep (spec §4.3 step 7).
const pollInterval = time.Second

// judgeDrainPoll bounds the finalization wait for the judge queue to
// empty (spec §4.3 Finalization).
const judgeDrainPoll = 500 * time.Millisecond

// breakerFailureThreshold and breakerRecovery bound how many consecutive
// adapter failures trip the planner/worker circuit breakers and how
// long they stay open before allowing a test call through.
const (
	breakerFailureThreshold = 5
	breakerRecovery         = 30 * time.Second
)

var (
	errPlannerCircuitOpen = errors.New("planner adapter circuit open, too many recent failures")
	errWorkerCircuitOpen  = errors.New("worker adapter circuit open, too many recent failures")
)

// Scheduler drives one Run's execution pipeline from planning through
// a terminal state.
type Scheduler struct {
	run     *model.Run
	planner planner.Adapter
	worker  worker.Adapter
	bus     *eventbus.Bus
	store   *store.Store
	log     *logger.Logger

	ctx context.Context

	judgeMu    sync.Mutex
	judgeQueue []*model.Task
	judging    bool

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}

	completions chan string
	wg          sync.WaitGroup

	plannerBreaker *resilience.CircuitBreaker
	workerBreaker  *resilience.CircuitBreaker
}

// New creates a Scheduler for run.
func New(run *model.Run, p planner.Adapter, w worker.Adapter, bus *eventbus.Bus, st *store.Store) *Scheduler {
	return &Scheduler{
		run:            run,
		planner:        p,
		worker:         w,
		bus:            bus,
		store:          st,
		log:            logger.WithRun(run.ID, ""),
		inFlight:       make(map[string]struct{}),
		completions:    make(chan string, 64),
		plannerBreaker: resilience.New(breakerFailureThreshold, breakerRecovery),
		workerBreaker:  resilience.New(breakerFailureThreshold, breakerRecovery),
	}
}

// Run drives the Run from its current state to a terminal or paused
// state. It blocks until the pipeline exits. abort may be fired
// concurrently by the Run Manager to request pause or stop.
func (s *Scheduler) Run(ctx context.Context, abort *AbortHandle) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = runCtx

	go func() {
		select {
		case <-abort.C():
			cancel()
		case <-runCtx.Done():
		}
	}()

	if len(s.run.PendingTasks()) == 0 {
		if !s.plan() {
			return
		}
	} else {
		s.log.Info("resuming run with existing pending tasks")
	}

	if reason, fired := abort.Fired(); fired {
		s.applyAbort(reason)
		return
	}

	s.run.Lock()
	_ = s.run.TransitionTo(model.RunExecuting)
	s.run.Unlock()
	s.emit(model.EventRunUpdated, s.run.Snapshot())
	s.persist()

	s.executionLoop(abort)
	s.finalize()
}

// plan runs the planning phase. It returns false if the Run was moved
// to failed and the pipeline must stop.
func (s *Scheduler) plan() bool {
	s.run.Lock()
	_ = s.run.TransitionTo(model.RunPlanning)
	s.run.Unlock()
	s.emit(model.EventRunUpdated, s.run.Snapshot())
	s.persist()

	var result planner.PlanResult
	var err error
	if !s.plannerBreaker.Allow() {
		err = errPlannerCircuitOpen
	} else {
		result, err = s.planner.Plan(s.ctx, s.run.Snapshot())
		if err != nil {
			s.plannerBreaker.RecordFailure()
		} else {
			s.plannerBreaker.RecordSuccess()
		}
	}
	now := time.Now()
	if err != nil {
		s.run.Lock()
		_ = s.run.TransitionTo(model.RunFailed)
		s.run.Error = err.Error()
		s.run.CompletedAt = &now
		s.run.Unlock()
		s.log.WithField("error", err.Error()).Error("planner failed")
		s.emit(model.EventRunFailed, s.run.Snapshot())
		s.persist()
		return false
	}

	type draft struct {
		task      *model.Task
		depTitles []string
	}

	titleToID := make(map[string]string, len(result.Tasks))
	drafts := make([]draft, 0, len(result.Tasks))

	s.run.Lock()
	for _, spec := range result.Tasks {
		nt := &model.Task{
			ID:          uuid.NewString(),
			Title:       spec.Title,
			Description: spec.Description,
			Status:      model.TaskPending,
			Priority:    spec.Priority,
			CreatedAt:   now,
		}
		key := strings.ToLower(nt.Title)
		if _, dup := titleToID[key]; dup {
			s.log.WithField("title", nt.Title).Warn("planner returned duplicate task title")
		} else {
			titleToID[key] = nt.ID
		}
		drafts = append(drafts, draft{task: nt, depTitles: spec.DependencyTitles})
	}
	for _, d := range drafts {
		d.task.Dependencies = resolveDeps(titleToID, d.depTitles)
		s.run.AddTask(d.task)
	}
	s.run.Analysis = result.Analysis
	s.run.Unlock()

	s.emit(model.EventRunUpdated, s.run.Snapshot())
	s.persist()
	return true
}

// executionLoop is the main pipeline loop (spec §4.3 Execution loop).
func (s *Scheduler) executionLoop(abort *AbortHandle) {
	for {
		if reason, fired := abort.Fired(); fired {
			s.applyAbort(reason)
			return
		}

		s.run.Lock()
		status := s.run.Status
		s.run.Unlock()
		if status == model.RunCompleted || status == model.RunFailed {
			return
		}

		ready := s.readyTasks()

		for s.inFlightCount() < s.run.MaxWorkers && len(ready) > 0 {
			if reason, fired := abort.Fired(); fired {
				s.applyAbort(reason)
				return
			}
			task := ready[0]
			ready = ready[1:]
			s.spawn(task)
		}

		if s.inFlightCount() == 0 && len(ready) == 0 {
			s.cancelDeadEnds()

			s.judgeMu.Lock()
			idle := !s.judging && len(s.judgeQueue) == 0
			s.judgeMu.Unlock()

			if idle && len(s.run.PendingTasks()) == 0 {
				return
			}
		}

		if s.inFlightCount() > 0 {
			select {
			case <-s.completions:
			case <-abort.C():
				reason, _ := abort.Fired()
				s.applyAbort(reason)
				return
			case <-s.ctx.Done():
				s.applyAbortFromCtx(abort)
				return
			}
		} else {
			select {
			case <-time.After(pollInterval):
			case <-abort.C():
				reason, _ := abort.Fired()
				s.applyAbort(reason)
				return
			case <-s.ctx.Done():
				s.applyAbortFromCtx(abort)
				return
			}
		}
	}
}

// applyAbortFromCtx handles s.ctx firing without abort.C() itself
// delivering (possible when the parent context, not the abort handle,
// was cancelled). Treated as a stop.
func (s *Scheduler) applyAbortFromCtx(abort *AbortHandle) {
	reason, fired := abort.Fired()
	if !fired {
		reason = AbortStop
	}
	s.applyAbort(reason)
}

func (s *Scheduler) readyTasks() []*model.Task {
	s.run.Lock()
	defer s.run.Unlock()

	statusMap := s.run.TaskStatusMap()
	var ready []*model.Task
	for _, t := range s.run.Tasks {
		if t.Ready(statusMap) {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].Seq() < ready[j].Seq()
	})
	return ready
}

func (s *Scheduler) cancelDeadEnds() {
	now := time.Now()
	var cancelledIDs []string

	s.run.Lock()
	statusMap := s.run.TaskStatusMap()
	for _, t := range s.run.Tasks {
		if t.Status == model.TaskPending && t.BlockedBy(statusMap) {
			t.Cancel(model.ReasonBlockedByDependency, now)
			cancelledIDs = append(cancelledIDs, t.ID)
		}
	}
	s.run.Unlock()

	for _, id := range cancelledIDs {
		s.emit(model.EventTaskUpdated, s.taskSnapshot(id))
	}
	if len(cancelledIDs) > 0 {
		s.persist()
	}
}

func (s *Scheduler) spawn(task *model.Task) {
	var handle *worker.Handle
	var err error
	if !s.workerBreaker.Allow() {
		err = errWorkerCircuitOpen
	} else {
		handle, err = s.worker.Spawn(s.ctx, task, s.run.TargetDir)
		if err != nil {
			s.workerBreaker.RecordFailure()
		} else {
			s.workerBreaker.RecordSuccess()
		}
	}
	if err != nil {
		now := time.Now()
		s.run.Lock()
		task.Fail(err.Error(), now)
		s.run.Unlock()
		s.emit(model.EventTaskUpdated, s.taskSnapshot(task.ID))
		s.enqueueJudge(task)
		return
	}

	now := time.Now()
	s.run.Lock()
	task.Start(handle.Worker.ID, now)
	s.run.Workers = append(s.run.Workers, handle.Worker)
	s.run.Unlock()

	s.emit(model.EventTaskUpdated, s.taskSnapshot(task.ID))
	s.emit(model.EventWorkerCreated, s.workerSnapshot(handle.Worker.ID))
	s.emit(model.EventRunUpdated, s.run.Snapshot())
	s.persist()

	s.markInFlight(task.ID)
	s.wg.Add(1)
	go s.awaitCompletion(task, handle)
}

func (s *Scheduler) awaitCompletion(task *model.Task, handle *worker.Handle) {
	defer s.wg.Done()
	defer s.clearInFlight(task.ID)

	res, ok := <-handle.Done
	if !ok {
		return
	}

	now := time.Now()
	s.run.Lock()
	if task.Status != model.TaskInProgress {
		// Already reverted by an abort; this completion is stale.
		s.run.Unlock()
		return
	}
	switch res.Status {
	case model.WorkerCompleted:
		task.Complete(res.TaskResult, now)
	default:
		task.Fail(res.TaskError, now)
	}
	if w := s.run.WorkerByID(handle.Worker.ID); w != nil {
		w.Finish(res.Status, now)
	}
	s.run.Unlock()

	s.emit(model.EventWorkerUpdated, s.workerSnapshot(handle.Worker.ID))
	s.emit(model.EventTaskUpdated, s.taskSnapshot(task.ID))
	s.persist()

	s.enqueueJudge(task)

	// Clear before signalling so the woken loop sees the freed slot.
	s.clearInFlight(task.ID)
	select {
	case s.completions <- task.ID:
	default:
	}
}

func (s *Scheduler) markInFlight(id string) {
	s.inFlightMu.Lock()
	s.inFlight[id] = struct{}{}
	s.inFlightMu.Unlock()
}

func (s *Scheduler) clearInFlight(id string) {
	s.inFlightMu.Lock()
	delete(s.inFlight, id)
	s.inFlightMu.Unlock()
}

func (s *Scheduler) inFlightCount() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) applyAbort(reason AbortReason) {
	now := time.Now()

	s.run.Lock()
	var runningWorkerIDs []string
	for _, w := range s.run.Workers {
		if w.Status == model.WorkerRunning {
			runningWorkerIDs = append(runningWorkerIDs, w.ID)
		}
	}
	for _, t := range s.run.Tasks {
		if t.Status == model.TaskInProgress {
			t.Revert()
		}
	}
	if reason == AbortPause {
		_ = s.run.TransitionTo(model.RunPaused)
	} else {
		_ = s.run.TransitionTo(model.RunStopped)
		s.run.CompletedAt = &now
	}
	s.run.Unlock()

	for _, id := range runningWorkerIDs {
		s.worker.Cancel(id)
	}

	s.emit(model.EventRunUpdated, s.run.Snapshot())
	s.persist()
}

func (s *Scheduler) finalize() {
	s.wg.Wait()

	for {
		s.judgeMu.Lock()
		idle := !s.judging && len(s.judgeQueue) == 0
		s.judgeMu.Unlock()
		if idle {
			break
		}
		time.Sleep(judgeDrainPoll)
	}

	s.run.Lock()
	terminal := s.run.Status == model.RunCompleted || s.run.Status == model.RunFailed ||
		s.run.Status == model.RunPaused || s.run.Status == model.RunStopped
	if !terminal {
		now := time.Now()
		if s.run.TransitionTo(model.RunCompleted) == nil {
			s.run.CompletedAt = &now
		}
	}
	s.run.Unlock()

	if !terminal {
		s.persist()
		s.emit(model.EventRunCompleted, s.run.Snapshot())
	}
}

// emit broadcasts payload on the Event Bus. Run, Task and Worker
// payloads are defensive copies (a Snapshot or a copied record); a
// *model.Judgement is emitted as the same pointer appended to
// s.run.Judgements, which the scheduler does not modify afterwards.
func (s *Scheduler) emit(t model.EventType, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(model.Event{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// taskSnapshot returns a point-in-time copy of the named task, or nil
// if it no longer exists.
func (s *Scheduler) taskSnapshot(id string) *model.Task {
	s.run.Lock()
	defer s.run.Unlock()
	t := s.run.TaskByID(id)
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// workerSnapshot returns a point-in-time copy of the named worker, or
// nil if it no longer exists.
func (s *Scheduler) workerSnapshot(id string) *model.Worker {
	s.run.Lock()
	defer s.run.Unlock()
	w := s.run.WorkerByID(id)
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}

func (s *Scheduler) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.run); err != nil {
		s.log.WithField("error", err.Error()).Error("failed to persist run")
	}
}

func resolveDeps(titleToID map[string]string, titles []string) []string {
	var ids []string
	for _, title := range titles {
		if id, ok := titleToID[strings.ToLower(title)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
