package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coderun-dev/fleet/internal/model"
)

func newListCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known runs from a running fleetctl serve daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runs []*model.Run
			if err := newAPIClient(addr).get("/runs", &runs); err != nil {
				return err
			}
			return printRunTable(cmd, runs)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServerAddr, "fleetctl serve address")
	return cmd
}

func printRunTable(cmd *cobra.Command, runs []*model.Run) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tGOAL\tTASKS\tMAX_WORKERS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Status, r.Goal, len(r.Tasks), r.MaxWorkers)
	}
	return tw.Flush()
}
