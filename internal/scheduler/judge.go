package scheduler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coderun-dev/fleet/internal/activity"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/planner"
)

// enqueueJudge pushes task onto the judge queue and kicks off the
// drain loop if it is not already running (spec §4.3 Judge queue
// processor). The drain loop is re-entrant-safe via the judging flag.
func (s *Scheduler) enqueueJudge(task *model.Task) {
	s.judgeMu.Lock()
	s.judgeQueue = append(s.judgeQueue, task)
	s.judgeMu.Unlock()

	go s.drainJudgeQueue()
}

func (s *Scheduler) drainJudgeQueue() {
	s.judgeMu.Lock()
	if s.judging {
		s.judgeMu.Unlock()
		return
	}
	s.judging = true
	s.judgeMu.Unlock()

	for {
		s.judgeMu.Lock()
		if len(s.judgeQueue) == 0 {
			s.judging = false
			s.judgeMu.Unlock()
			return
		}
		task := s.judgeQueue[0]
		s.judgeQueue = s.judgeQueue[1:]
		s.judgeMu.Unlock()

		s.run.Lock()
		if s.run.Status != model.RunJudging {
			_ = s.run.TransitionTo(model.RunJudging)
		}
		s.run.Unlock()
		s.emit(model.EventRunUpdated, s.run.Snapshot())

		s.judgeOne(task)

		// Revert only once the queue has actually drained, per the
		// decision recorded for the judging/executing flicker question.
		s.judgeMu.Lock()
		empty := len(s.judgeQueue) == 0
		s.judgeMu.Unlock()

		if empty {
			s.run.Lock()
			if s.run.Status == model.RunJudging {
				_ = s.run.TransitionTo(model.RunExecuting)
			}
			s.run.Unlock()
			s.emit(model.EventRunUpdated, s.run.Snapshot())
		}
	}
}

func (s *Scheduler) judgeOne(task *model.Task) {
	s.run.Lock()
	var digest string
	if w := s.run.WorkerByID(task.WorkerID); w != nil {
		digest = activity.Summarize(w.Activity)
	}
	s.run.Unlock()

	var result planner.JudgeResult
	var err error
	if !s.plannerBreaker.Allow() {
		err = errPlannerCircuitOpen
	} else {
		result, err = s.planner.Judge(s.ctx, s.run, task, digest)
		if err != nil {
			s.plannerBreaker.RecordFailure()
		} else {
			s.plannerBreaker.RecordSuccess()
		}
	}
	now := time.Now()

	if err != nil {
		j := &model.Judgement{
			ID:         uuid.NewString(),
			TaskID:     task.ID,
			Assessment: "Judge error: " + err.Error(),
			Timestamp:  now,
		}
		s.run.Lock()
		s.run.Judgements = append(s.run.Judgements, j)
		s.run.Unlock()

		s.log.WithField("error", err.Error()).Error("judge invocation failed")
		s.emit(model.EventJudgementAdded, j)
		s.persist()
		return
	}

	judgementID := uuid.NewString()
	var newTaskIDs []string
	var completedNow bool

	s.run.Lock()
	titleToID := make(map[string]string, len(s.run.Tasks))
	for _, t := range s.run.Tasks {
		titleToID[strings.ToLower(t.Title)] = t.ID
	}

	for _, spec := range result.NewTasks {
		priority := spec.Priority
		if priority == 0 {
			priority = 5
		}
		nt := &model.Task{
			ID:          uuid.NewString(),
			Title:       spec.Title,
			Description: spec.Description,
			Status:      model.TaskPending,
			Priority:    priority,
			SpawnedBy:   judgementID,
			CreatedAt:   now,
		}
		key := strings.ToLower(nt.Title)
		if _, dup := titleToID[key]; dup {
			s.log.WithField("title", nt.Title).Warn("judge spawned task with duplicate title")
		} else {
			titleToID[key] = nt.ID
		}
		nt.Dependencies = resolveDeps(titleToID, spec.DependencyTitles)
		s.run.AddTask(nt)
		newTaskIDs = append(newTaskIDs, nt.ID)
	}

	j := &model.Judgement{
		ID:           judgementID,
		TaskID:       task.ID,
		Assessment:   result.Assessment,
		NewTaskIDs:   newTaskIDs,
		GoalComplete: result.GoalComplete,
		Timestamp:    now,
	}
	s.run.Judgements = append(s.run.Judgements, j)

	if result.GoalComplete {
		for _, t := range s.run.Tasks {
			if t.Status == model.TaskPending {
				t.Cancel(model.ReasonGoalComplete, now)
			}
		}
		if len(s.run.InProgressTasks()) == 0 {
			if s.run.TransitionTo(model.RunCompleted) == nil {
				s.run.CompletedAt = &now
				completedNow = true
			}
		}
	}
	s.run.Unlock()

	for _, id := range newTaskIDs {
		s.emit(model.EventTaskUpdated, s.taskSnapshot(id))
	}
	s.emit(model.EventJudgementAdded, j)
	s.log.WithField("assessment", j.Assessment).Info("judgement recorded")
	s.persist()

	if completedNow {
		s.emit(model.EventRunCompleted, s.run.Snapshot())
	} else if result.GoalComplete {
		s.log.Info("goal marked complete — waiting for running tasks")
	}
}
