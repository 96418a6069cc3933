package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show per-dependency resilience metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Metrics()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Dependencies) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No dependencies configured")
					return nil
				}
				table := renderTable(
					[]string{"Dependency", "Breaker", "Tokens", "Attempts", "Successes", "Failures", "Open", "Limited", "Avg latency"},
					buildDependencyRows(resp.Dependencies),
					[]columnAlignment{
						alignLeft, alignLeft, alignRight, alignRight, alignRight,
						alignRight, alignRight, alignRight, alignRight,
					},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit metrics as JSON")
	return cmd
}
