package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/budget"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/category"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

func newBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage per-category spending limits",
	}
	cmd.AddCommand(newBudgetSetCommand())
	cmd.AddCommand(newBudgetDeleteCommand())
	cmd.AddCommand(newBudgetStatusCommand())
	return cmd
}

func newBudgetSetCommand() *cobra.Command {
	var yearly bool

	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Set a monthly or yearly budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if _, ok := a.registry.Get(args[0]); !ok {
				return category.ErrCategoryNotFound
			}
			cents, err := core.ParseAmountToCents(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			period := budget.Monthly
			if yearly {
				period = budget.Yearly
			}
			b := budget.Budget{
				Category:    args[0],
				AmountCents: cents,
				Period:      period,
				Active:      true,
			}
			if err := b.Validate(); err != nil {
				return err
			}
			if err := a.repo.UpsertBudget(ctx, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s per %s\n", b.Category, core.Money{Cents: b.AmountCents}, period)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yearly, "yearly", false, "set a yearly budget instead of monthly")

	return cmd
}

func newBudgetDeleteCommand() *cobra.Command {
	var yearly bool

	cmd := &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			period := budget.Monthly
			if yearly {
				period = budget.Yearly
			}
			if err := a.repo.DeleteBudget(ctx, args[0], period); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s budget\n", period, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yearly, "yearly", false, "delete the yearly budget instead of monthly")

	return cmd
}

func newBudgetStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show spend against every active budget for the current period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			budgets, err := a.repo.ListBudgets(ctx)
			if err != nil {
				return err
			}
			txs, err := a.includedTransactions(ctx)
			if err != nil {
				return err
			}

			statuses := budget.Evaluate(budgets, a.categoryOf, txs, time.Now())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tPERIOD\tBUDGET\tSPENT\tREMAINING\tUSED")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\n",
					s.Budget.Category,
					s.Budget.Period,
					core.Money{Cents: s.Budget.AmountCents},
					core.Money{Cents: s.SpentCents},
					core.Money{Cents: s.RemainingCents},
					s.PercentUsed,
				)
			}
			return w.Flush()
		},
	}
}
