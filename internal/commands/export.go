package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/export"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Append current merchant group summaries to the configured Google Sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.GoogleSpreadsheetID == "" {
				return fmt.Errorf("no spreadsheet configured (set GOOGLE_SPREADSHEET_ID)")
			}

			client, err := export.NewSheetsClient(ctx, a.cfg)
			if err != nil {
				return err
			}

			items, err := a.resolvedTransactions(ctx)
			if err != nil {
				return err
			}
			excluded, err := a.repo.ExcludedGroups(ctx)
			if err != nil {
				return err
			}
			groups := grouping.Build(items, excluded)
			grouping.Sort(groups, grouping.SortByTotal, true)

			if err := client.AppendGroups(ctx, groups, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d groups to %s\n",
				len(groups), a.cfg.GoogleSheetName)
			return nil
		},
	}
}
