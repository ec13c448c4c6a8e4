package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/loadgate"
)

// List the orchestrations recorded in the history database.
func historyCmd(app *loadgate.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded in the history database.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			return app.History(gatecontext.Background(), limit, loadgate.HistoryFormat(output))
		},
	}
	cmd.Flags().Int("limit", 20, "Number of runs to list; 0 lists all of them")
	cmd.Flags().StringP("output", "o", string(loadgate.HistoryTable), "Output format: table or yaml")
	cmd.Flags().String("history-db", "", "SQLite database the runs are recorded in")
	return cmd
}
