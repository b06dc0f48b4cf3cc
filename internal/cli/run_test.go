package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/output"
)

func TestNewRunCommandRequiresGoalArgument(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Args(cmd, []string{}))
}

func TestNewRunCommandAcceptsGoalArgument(t *testing.T) {
	cmd := newRunCommand()
	assert.NoError(t, cmd.Args(cmd, []string{"ship it"}))
}

func TestFollowEventsStopsOnRunCompleted(t *testing.T) {
	events := make(chan model.Event, 1)
	events <- model.Event{Type: model.EventRunCompleted}
	close(events)

	done := make(chan struct{})
	followEvents(output.NewPrinter(), "run-1", events, done)
	<-done // followEvents closes done itself; reading confirms it happened
}

func TestFollowEventsStopsOnRunUpdatedTerminalStatus(t *testing.T) {
	events := make(chan model.Event, 1)
	events <- model.Event{
		Type:    model.EventRunUpdated,
		Payload: &model.Run{ID: "run-1", Status: model.RunStopped},
	}
	close(events)

	done := make(chan struct{})
	followEvents(output.NewPrinter(), "run-1", events, done)
	<-done
}

func TestPrintRunSummaryDoesNotPanicOnEveryStatus(t *testing.T) {
	p := output.NewPrinter()
	for _, status := range []model.RunStatus{
		model.RunCompleted, model.RunFailed, model.RunStopped, model.RunExecuting,
	} {
		printRunSummary(p, &model.Run{ID: "run-1", Status: status})
	}
}
