// Package planner defines the external planning-service boundary: the
// core only calls two pure functions, an initial plan and a
// post-task judgement, and never interprets how they are produced.
package planner

import (
	"context"

	"github.com/coderun-dev/fleet/internal/model"
)

// NewTaskSpec is one task as proposed by the planner or a judgement,
// before the Scheduler mints an identifier and resolves dependency
// titles to ids.
type NewTaskSpec struct {
	Title            string
	Description      string
	Priority         int
	DependencyTitles []string
}

// PlanResult is the outcome of an initial plan call.
type PlanResult struct {
	Analysis string
	Tasks    []NewTaskSpec
}

// JudgeResult is the outcome of one judge invocation on a completed task.
type JudgeResult struct {
	Assessment   string
	GoalComplete bool
	NewTasks     []NewTaskSpec
}

// Adapter is the interface the Scheduler consumes to reach the external
// planning service. Implementations may fail either call; the Scheduler
// treats a Plan failure as fatal to the Run and a Judge failure as
// recorded-and-continue (spec §7).
// activitySummary is the Activity Summary component's digest of the
// completed task's worker activity (internal/activity.Summarize),
// handed to Judge alongside the task's result/error so the judge never
// has to read a raw activity log.
type Adapter interface {
	Plan(ctx context.Context, run *model.Run) (PlanResult, error)
	Judge(ctx context.Context, run *model.Run, task *model.Task, activitySummary string) (JudgeResult, error)
}
