package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage expense categories",
	}
	cmd.AddCommand(newCategoryListCommand())
	cmd.AddCommand(newCategoryAddCommand())
	cmd.AddCommand(newCategoryRenameCommand())
	cmd.AddCommand(newCategoryDeleteCommand())
	return cmd
}

func newCategoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			for _, c := range a.registry.List() {
				kind := "custom"
				if c.IsSystem {
					kind = "system"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s %s\t%s\t%s\n",
					c.DisplayOrder, c.Emoji, c.Name, c.Color, kind)
			}
			return nil
		},
	}
}

func newCategoryAddCommand() *cobra.Command {
	var emoji, color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.registry.AddCustom(ctx, args[0], emoji, color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (order %d)\n", c.Emoji, c.Name, c.DisplayOrder)
			return nil
		},
	}

	cmd.Flags().StringVar(&emoji, "emoji", "📦", "category emoji")
	cmd.Flags().StringVar(&color, "color", "#9E9E9E", "category color (hex)")

	return cmd
}

func newCategoryRenameCommand() *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename a custom category, rewriting its aliases",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.registry.Rename(ctx, args[0], args[1], emoji)
			if err != nil {
				return err
			}
			if a.events != nil {
				if err := a.events.CategoryChanged(ctx, "", c.Name); err != nil {
					a.logger.WarnContext(ctx, "Category event publish failed", "category", c.Name, "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed to %s %s\n", c.Emoji, c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&emoji, "emoji", "", "new emoji (keeps current when empty)")

	return cmd
}

func newCategoryDeleteCommand() *cobra.Command {
	var reassignTo string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a custom category, reassigning its merchants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.registry.Delete(ctx, args[0], reassignTo); err != nil {
				return err
			}
			if a.events != nil {
				if err := a.events.CategoryChanged(ctx, "", reassignTo); err != nil {
					a.logger.WarnContext(ctx, "Category event publish failed", "category", reassignTo, "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s; merchants moved to %s\n", args[0], reassignTo)
			return nil
		},
	}

	cmd.Flags().StringVar(&reassignTo, "reassign-to", "Other", "category receiving the deleted category's merchants")

	return cmd
}
