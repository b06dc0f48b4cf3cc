package cli

import (
	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/output"
)

// newPauseCommand, newResumeCommand, and newStopCommand each POST a
// transition to a run on a running fleetctl serve daemon and print the
// resulting status.
func newPauseCommand() *cobra.Command  { return newTransitionCommand("pause", "Pause a running run") }
func newResumeCommand() *cobra.Command {
	return newTransitionCommand("resume", "Resume a paused run")
}
func newStopCommand() *cobra.Command { return newTransitionCommand("stop", "Stop a run") }

func newTransitionCommand(verb, short string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   verb + " <run-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run model.Run
			if err := newAPIClient(addr).post("/runs/"+args[0]+"/"+verb, nil, &run); err != nil {
				return err
			}
			output.NewPrinter().Success("run %s is now %s", run.ID, run.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServerAddr, "fleetctl serve address")
	return cmd
}
