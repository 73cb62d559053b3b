package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ingest sync state and store counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.repo.SyncState(ctx)
			if err != nil {
				return err
			}
			count, err := a.repo.CountTransactions(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "status:        %s\n", st.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "transactions:  %d\n", count)
			if !st.LastSMSTimestamp.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "last message:  %s (%s)\n",
					st.LastSMSID, st.LastSMSTimestamp.Format("2006-01-02 15:04:05"))
			}
			if !st.LastFullSync.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "last full sync: %s\n",
					st.LastFullSync.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
