package runmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

func newTestManager(t *testing.T) (*Manager, *planner.MockAdapter, *worker.MockAdapter) {
	t.Helper()
	p := planner.NewMockAdapter()
	w := worker.NewMockAdapter()
	bus := eventbus.New()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(p, w, bus, st, nil), p, w
}

func TestCreateRejectsMissingTargetDir(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	_, err := mgr.Create("goal", "/no/such/dir/at/all", 1)
	require.ErrorIs(t, err, ErrTargetDirMissing)
}

func TestCreateRegistersIdleRun(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	run, err := mgr.Create("goal", t.TempDir(), 2)
	require.NoError(t, err)
	assert.Equal(t, model.RunIdle, run.Status)

	got, err := mgr.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestGetUnknownRunReturnsNotFound(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	_, err := mgr.Get("nope")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestStartRunsToCompletion(t *testing.T) {
	mgr, p, _ := newTestManager(t)
	p.PlanFunc = func(ctx context.Context, r *model.Run) (planner.PlanResult, error) {
		return planner.PlanResult{Tasks: []planner.NewTaskSpec{{Title: "T1"}}}, nil
	}
	p.JudgeFunc = func(ctx context.Context, r *model.Run, task *model.Task, summary string) (planner.JudgeResult, error) {
		return planner.JudgeResult{GoalComplete: true}, nil
	}

	run, err := mgr.Create("goal", t.TempDir(), 1)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(run.ID))

	require.Eventually(t, func() bool {
		got, _ := mgr.Get(run.ID)
		return got.Status == model.RunCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartTwiceIsIllegal(t *testing.T) {
	mgr, p, w := newTestManager(t)
	w.Delay = 100 * time.Millisecond
	p.PlanFunc = func(ctx context.Context, r *model.Run) (planner.PlanResult, error) {
		return planner.PlanResult{Tasks: []planner.NewTaskSpec{{Title: "T1"}}}, nil
	}

	run, err := mgr.Create("goal", t.TempDir(), 1)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(run.ID))

	err = mgr.Start(run.ID)
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
}

func TestPauseThenResumeCompletes(t *testing.T) {
	mgr, p, w := newTestManager(t)
	w.Delay = 30 * time.Millisecond
	p.PlanFunc = func(ctx context.Context, r *model.Run) (planner.PlanResult, error) {
		return planner.PlanResult{Tasks: []planner.NewTaskSpec{{Title: "T1"}, {Title: "T2"}}}, nil
	}
	p.JudgeFunc = func(ctx context.Context, r *model.Run, task *model.Task, summary string) (planner.JudgeResult, error) {
		return planner.JudgeResult{GoalComplete: task.Title == "T2"}, nil
	}

	run, err := mgr.Create("goal", t.TempDir(), 1)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(run.ID))

	require.NoError(t, mgr.Pause(run.ID))

	require.Eventually(t, func() bool {
		got, _ := mgr.Get(run.ID)
		return got.Status == model.RunPaused
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, mgr.Resume(run.ID))

	require.Eventually(t, func() bool {
		got, _ := mgr.Get(run.ID)
		return got.Status == model.RunCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPauseWithNoActiveSchedulerIsIllegal(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	run, err := mgr.Create("goal", t.TempDir(), 1)
	require.NoError(t, err)

	err = mgr.Pause(run.ID)
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	first, err := mgr.Create("first", t.TempDir(), 1)
	require.NoError(t, err)
	first.CreatedAt = first.CreatedAt.Add(-time.Hour)

	second, err := mgr.Create("second", t.TempDir(), 1)
	require.NoError(t, err)

	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestBootstrapLoadsPersistedRuns(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)

	run := model.New("run-persisted", "goal", t.TempDir(), 1, time.Now())
	require.NoError(t, st.Save(run))

	mgr := New(planner.NewMockAdapter(), worker.NewMockAdapter(), eventbus.New(), st, nil)
	require.NoError(t, mgr.Bootstrap())

	got, err := mgr.Get("run-persisted")
	require.NoError(t, err)
	assert.Equal(t, "goal", got.Goal)
}
