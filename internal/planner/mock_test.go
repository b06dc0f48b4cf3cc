package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderun-dev/fleet/internal/model"
)

func TestMockAdapterDefaultPlan(t *testing.T) {
	run := model.New("run-1", "write hello", "/tmp/x", 1, time.Now())
	adapter := NewMockAdapter()

	result, err := adapter.Plan(context.Background(), run)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "task-1", result.Tasks[0].Title)
	assert.Len(t, adapter.PlanCalls, 1)
	assert.Equal(t, "run-1", adapter.PlanCalls[0].RunID)
}

func TestMockAdapterDefaultJudgeCompletesGoal(t *testing.T) {
	run := model.New("run-1", "write hello", "/tmp/x", 1, time.Now())
	task := &model.Task{ID: "t1", Title: "T1"}
	adapter := NewMockAdapter()

	result, err := adapter.Judge(context.Background(), run, task, "")
	require.NoError(t, err)
	assert.True(t, result.GoalComplete)
	assert.Empty(t, result.NewTasks)
	require.Len(t, adapter.JudgeCalls, 1)
	assert.Equal(t, "t1", adapter.JudgeCalls[0].TaskID)
}

func TestMockAdapterScriptedBehavior(t *testing.T) {
	run := model.New("run-1", "goal", "/tmp/x", 1, time.Now())
	adapter := NewMockAdapter()
	adapter.PlanFunc = func(ctx context.Context, r *model.Run) (PlanResult, error) {
		return PlanResult{Analysis: "scripted", Tasks: []NewTaskSpec{{Title: "A"}, {Title: "B"}}}, nil
	}

	result, err := adapter.Plan(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "scripted", result.Analysis)
	assert.Len(t, result.Tasks, 2)
}

func TestMockAdapterReset(t *testing.T) {
	run := model.New("run-1", "goal", "/tmp/x", 1, time.Now())
	adapter := NewMockAdapter()
	_, _ = adapter.Plan(context.Background(), run)
	adapter.Reset()
	assert.Empty(t, adapter.PlanCalls)
}
