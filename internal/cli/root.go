// Package cli implements the fleetctl command-line interface: a thin
// cobra front end over the Run Manager, the Run Store, and the
// peripheral HTTP surface. Every command here drives the orchestration
// core through the same Mock Planner/Worker Adapters the test suite
// uses — spec.md's Non-goals place real provider integrations outside
// this repo, so `fleetctl run` is a demonstration harness, not a live
// coding agent, and says so up front.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/config"
	"github.com/coderun-dev/fleet/internal/output"
)

const version = "0.1.0"

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the fleetctl command tree.
func NewRootCommand() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "fleetctl",
		Short: "fleetctl - orchestration engine for autonomous coding agent fleets",
		Long: `fleetctl drives a Run/Task/Judgement/Worker orchestration engine:
a parallel scheduler hands ready tasks to worker adapters, a serialized
judge reviews each completed task, and a run can be paused, resumed, or
stopped at any point with its state durably persisted to disk.

The planner and worker adapters shipped with this binary are mock
implementations (see internal/planner and internal/worker) — there is
no bundled integration with a real LLM provider. "fleetctl run" is
useful for exercising the scheduler and judge loop end to end, not for
driving real coding work.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), "fleetctl version "+version)
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print the version and exit")

	cmd.AddCommand(
		newRunCommand(),
		newServeCommand(),
		newListCommand(),
		newStatusCommand(),
		newPauseCommand(),
		newResumeCommand(),
		newStopCommand(),
	)

	return cmd
}

// loadConfig loads the environment-derived Config, printing a clear
// error via the Printer on failure so a malformed FLEET_* env var
// doesn't surface as a bare stack-less error string.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		output.NewPrinter().Error("invalid configuration: %v", err)
		return nil, err
	}
	return cfg, nil
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	output.NewPrinter().Error("%v", err)
	os.Exit(1)
}
