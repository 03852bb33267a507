package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mirrorvault/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var position int
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded backup runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				req := ipc.HistoryRequest{Limit: limit}
				if position > 0 {
					list, err := client.ListPairs()
					if err != nil {
						return err
					}
					if position > len(list.Pairs) {
						return fmt.Errorf("pair %d does not exist (%d configured)", position, len(list.Pairs))
					}
					req.PairID = list.Pairs[position-1].Pair.ID
				}
				resp, err := client.History(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Runs)
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), historyTable(resp.Runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&position, "pair", "p", 0, "Only show runs of the pair at this position")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
