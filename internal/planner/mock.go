package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/coderun-dev/fleet/internal/model"
)

// PlanCall records one Plan invocation for test assertions.
type PlanCall struct {
	RunID string
}

// JudgeCall records one Judge invocation for test assertions.
type JudgeCall struct {
	RunID  string
	TaskID string
}

// MockAdapter is a deterministic, scriptable planner used by tests and
// by the fleetctl commands, which always run against the mock adapters.
// Callers configure PlanFunc/JudgeFunc, or
// fall back to the zero-value behavior of "one task, immediately
// complete" so a MockAdapter is usable without any setup.
type MockAdapter struct {
	mu sync.Mutex

	PlanFunc  func(ctx context.Context, run *model.Run) (PlanResult, error)
	JudgeFunc func(ctx context.Context, run *model.Run, task *model.Task, activitySummary string) (JudgeResult, error)

	PlanCalls  []PlanCall
	JudgeCalls []JudgeCall
}

// NewMockAdapter creates a MockAdapter with no scripted behavior; Plan
// returns a single task named "task-1" and Judge always declares the
// goal complete with no follow-up tasks.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// Plan records the call and delegates to PlanFunc, or the default
// single-task plan if unset.
func (m *MockAdapter) Plan(ctx context.Context, run *model.Run) (PlanResult, error) {
	m.mu.Lock()
	m.PlanCalls = append(m.PlanCalls, PlanCall{RunID: run.ID})
	fn := m.PlanFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, run)
	}
	return PlanResult{
		Analysis: fmt.Sprintf("mock plan for goal: %s", run.Goal),
		Tasks: []NewTaskSpec{
			{Title: "task-1", Description: run.Goal, Priority: 5},
		},
	}, nil
}

// Judge records the call and delegates to JudgeFunc, or the default
// "goal complete, no follow-up" judgement if unset.
func (m *MockAdapter) Judge(ctx context.Context, run *model.Run, task *model.Task, activitySummary string) (JudgeResult, error) {
	m.mu.Lock()
	m.JudgeCalls = append(m.JudgeCalls, JudgeCall{RunID: run.ID, TaskID: task.ID})
	fn := m.JudgeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, run, task, activitySummary)
	}
	return JudgeResult{
		Assessment:   fmt.Sprintf("task %s judged complete", task.Title),
		GoalComplete: true,
	}, nil
}

// Reset clears recorded calls without touching scripted behavior.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlanCalls = nil
	m.JudgeCalls = nil
}
