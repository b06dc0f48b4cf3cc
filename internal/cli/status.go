package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/model"
)

func newStatusCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the full record for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run model.Run
			if err := newAPIClient(addr).get("/runs/"+args[0], &run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id:          %s\n", run.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "status:      %s\n", run.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "goal:        %s\n", run.Goal)
			fmt.Fprintf(cmd.OutOrStdout(), "target_dir:  %s\n", run.TargetDir)
			fmt.Fprintf(cmd.OutOrStdout(), "max_workers: %d\n", run.MaxWorkers)
			fmt.Fprintf(cmd.OutOrStdout(), "tasks:       %d\n", len(run.Tasks))
			fmt.Fprintf(cmd.OutOrStdout(), "judgements:  %d\n", len(run.Judgements))
			fmt.Fprintf(cmd.OutOrStdout(), "workers:     %d\n", len(run.Workers))
			if run.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "error:       %s\n", run.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServerAddr, "fleetctl serve address")
	return cmd
}
