package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/output"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/runmgr"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

// newRunCommand creates the run command: it creates a Run against the
// mock Planner/Worker Adapters and drives it to completion in-process,
// following the Event Bus for progress and treating an interrupt as a
// request to stop the run gracefully rather than kill the process.
func newRunCommand() *cobra.Command {
	var targetDir string
	var maxWorkers int

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Create and run a Run to completion against the mock adapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], targetDir, maxWorkers)
		},
	}

	cmd.Flags().StringVar(&targetDir, "dir", ".", "target directory the run operates against")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "maximum concurrent workers (default: config default, clamped 1-10)")

	return cmd
}

func runRun(cmd *cobra.Command, goal, targetDir string, maxWorkers int) error {
	p := output.NewPrinter()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p.Warning("using mock planner and worker adapters; this is a demonstration run, not live coding work")

	st, err := store.New(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("fleetctl: opening run store: %w", err)
	}

	bus := eventbus.New()
	mgr := runmgr.New(planner.NewMockAdapter(), worker.NewMockAdapter(), bus, st, cfg)
	if err := mgr.Bootstrap(); err != nil {
		return fmt.Errorf("fleetctl: bootstrapping run store: %w", err)
	}

	run, err := mgr.Create(goal, targetDir, maxWorkers)
	if err != nil {
		return fmt.Errorf("fleetctl: creating run: %w", err)
	}
	p.Step("created run %s", run.ID)

	subID, events, _ := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go followEvents(p, run.ID, events, done)

	if err := mgr.Start(run.ID); err != nil {
		return fmt.Errorf("fleetctl: starting run: %w", err)
	}

	select {
	case <-ctx.Done():
		p.Warning("interrupt received, stopping run %s", run.ID)
		_ = mgr.Stop(run.ID)
		<-done
	case <-done:
	}

	final, err := mgr.Get(run.ID)
	if err != nil {
		return err
	}
	printRunSummary(p, final)
	if final.Status == model.RunFailed {
		os.Exit(1)
	}
	return nil
}

// followEvents prints Task/Judgement updates for runID until the run
// reaches a terminal status, then closes done.
func followEvents(p *output.Printer, runID string, events <-chan model.Event, done chan struct{}) {
	defer close(done)
	for evt := range events {
		switch evt.Type {
		case model.EventTaskUpdated:
			if t, ok := evt.Payload.(*model.Task); ok && t != nil {
				p.Detail("task %s -> %s", t.ID, t.Status)
			}
		case model.EventJudgementAdded:
			p.Detail("judgement recorded")
		case model.EventRunCompleted, model.EventRunFailed:
			return
		case model.EventRunUpdated:
			if r, ok := evt.Payload.(*model.Run); ok && r != nil && r.ID == runID {
				switch r.Status {
				case model.RunStopped, model.RunCompleted, model.RunFailed:
					return
				}
			}
		}
	}
}

func printRunSummary(p *output.Printer, run *model.Run) {
	switch run.Status {
	case model.RunCompleted:
		p.Success("run %s completed (%d tasks)", run.ID, len(run.Tasks))
	case model.RunFailed:
		p.Error("run %s failed: %s", run.ID, run.Error)
	case model.RunStopped:
		p.Warning("run %s stopped", run.ID)
	default:
		p.Info("run %s ended in status %s", run.ID, run.Status)
	}
}