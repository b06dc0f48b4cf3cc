package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/httpapi"
	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/output"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/reaper"
	"github.com/coderun-dev/fleet/internal/runmgr"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, event streams, and lifecycle reaper as a long-running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port to listen on (default: FLEET_HTTP_PORT or 4600)")

	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	p := output.NewPrinter()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger.Initialize(string(cfg.Verbosity))

	st, err := store.New(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("fleetctl: opening run store: %w", err)
	}

	bus := eventbus.NewWithLimits(cfg.EventBusCap, cfg.EventBusRecent)
	workerAdapter := worker.NewMockAdapter()
	mgr := runmgr.New(planner.NewMockAdapter(), workerAdapter, bus, st, cfg)

	r := reaper.New(mgr, workerAdapter, time.Duration(cfg.SaveIntervalSeconds)*time.Second)
	if err := r.Startup(); err != nil {
		return fmt.Errorf("fleetctl: reaper startup: %w", err)
	}
	go r.RunPeriodicSave()

	srv := httpapi.New(cfg, mgr, bus)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	p.Success("fleetctl serving on port %d (store: %s)", cfg.Server.Port, cfg.StoreDir)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	p.Warning("shutting down, draining active runs")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r.Shutdown(shutdownCtx)

	return <-serverErr
}
