package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"
)

func newGroupsCommand() *cobra.Command {
	var (
		search        string
		minAmount     float64
		maxAmount     float64
		banks         []string
		minConfidence float64
		from          string
		to            string
		sortBy        string
		ascending     bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List merchant groups with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.resolvedTransactions(ctx)
			if err != nil {
				return err
			}

			filter := grouping.Filter{
				Search:        search,
				Banks:         banks,
				MinConfidence: minConfidence,
			}
			if cmd.Flags().Changed("min-amount") {
				cents := int64(minAmount * 100)
				filter.MinAmountCents = &cents
			}
			if cmd.Flags().Changed("max-amount") {
				cents := int64(maxAmount * 100)
				filter.MaxAmountCents = &cents
			}
			if from != "" {
				t, err := time.Parse("2006-01-02", from)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				filter.From = t
			}
			if to != "" {
				t, err := time.Parse("2006-01-02", to)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				filter.To = t
			}
			items = filter.Apply(items)

			excluded, err := a.repo.ExcludedGroups(ctx)
			if err != nil {
				return fmt.Errorf("load exclusions: %w", err)
			}

			groups := grouping.Build(items, excluded)
			grouping.Sort(groups, grouping.ParseSortKey(sortBy), !ascending)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MERCHANT\tCATEGORY\tTXNS\tTOTAL\tBANK\tLATEST\tINCLUDED")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%v\n",
					g.DisplayName,
					g.Category,
					len(g.Transactions),
					core.Money{Cents: g.TotalCents},
					g.PrimaryBank,
					g.LatestTimestamp.Format("2006-01-02"),
					g.IncludedInTotals,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nincluded total: %s across %d groups\n",
				core.Money{Cents: grouping.TotalIncludedCents(groups)}, len(groups))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "substring match on merchant, bank, category or raw text")
	cmd.Flags().Float64Var(&minAmount, "min-amount", 0, "minimum amount in currency units")
	cmd.Flags().Float64Var(&maxAmount, "max-amount", 0, "maximum amount in currency units")
	cmd.Flags().StringSliceVar(&banks, "bank", nil, "restrict to bank names (repeatable)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum parse confidence")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&sortBy, "sort", "latest", "sort key: latest, total, name, bank, confidence")
	cmd.Flags().BoolVar(&ascending, "asc", false, "sort ascending instead of descending")

	cmd.AddCommand(newGroupsExcludeCommand(true))
	cmd.AddCommand(newGroupsExcludeCommand(false))

	return cmd
}

func newGroupsExcludeCommand(exclude bool) *cobra.Command {
	use, short := "exclude <display-name>", "Exclude a merchant group from aggregate totals"
	if !exclude {
		use, short = "include <display-name>", "Include a merchant group in aggregate totals"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			name := args[0]
			if err := a.repo.SetGroupExcluded(ctx, name, exclude); err != nil {
				return fmt.Errorf("update exclusion: %w", err)
			}
			if a.kv != nil {
				if err := a.kv.SetGroupExcluded(ctx, name, exclude); err != nil {
					a.logger.WarnContext(ctx, "Preference mirror write failed", "display_name", name, "error", err)
				}
			}
			if a.events != nil {
				if err := a.events.GroupInclusionChanged(ctx, name, !exclude); err != nil {
					a.logger.WarnContext(ctx, "Inclusion event publish failed", "display_name", name, "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: included=%v\n", name, !exclude)
			return nil
		},
	}
}
