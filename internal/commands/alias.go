package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
)

func newAliasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage merchant display names and categories",
	}
	cmd.AddCommand(newAliasSetCommand())
	cmd.AddCommand(newAliasRemoveCommand())
	cmd.AddCommand(newAliasListCommand())
	return cmd
}

func newAliasSetCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "set <raw-merchant>... --name <display-name> --category <category>",
		Short: "Assign a display name and category to one or more raw merchants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			displayName, _ := cmd.Flags().GetString("name")
			categoryName, _ := cmd.Flags().GetString("category")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			keys := make([]string, 0, len(args))
			for _, raw := range args {
				keys = append(keys, merchant.Normalize(raw))
			}

			if force {
				keys = forceMergeKeys(a.resolver, keys, displayName, categoryName)
			} else {
				for _, key := range keys {
					c := a.resolver.CheckConflict(key, displayName, categoryName)
					switch c.Kind {
					case merchant.ConflictCategoryMismatch:
						return fmt.Errorf("display name %q already maps to category %q via %s (use --force to merge)",
							displayName, c.ExistingCategory, strings.Join(c.OtherKeys, ", "))
					case merchant.ConflictOverwriteExisting:
						return fmt.Errorf("merchant %q already has alias %q in %q (use --force to overwrite)",
							key, c.ExistingDisplayName, c.ExistingCategory)
					}
				}
			}

			if err := a.resolver.SetAlias(ctx, keys, displayName, categoryName); err != nil {
				var partial *merchant.PartialPersistenceError
				if errors.As(err, &partial) {
					fmt.Fprintf(cmd.ErrOrStderr(), "persisted: %s\nfailed:    %s\n",
						strings.Join(partial.SucceededKeys, ", "),
						strings.Join(partial.FailedKeys, ", "))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n",
				strings.Join(keys, ", "), displayName, categoryName)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().String("category", "", "category name (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().BoolVar(&force, "force", false, "apply despite overwrite or category conflicts")

	return cmd
}

// forceMergeKeys widens a forced write to every key already sharing the
// display name when the requested category differs from theirs. Without the
// widening a forced write would leave one display name split across two
// categories.
func forceMergeKeys(r *merchant.Resolver, keys []string, displayName, categoryName string) []string {
	for _, key := range keys {
		if r.CheckConflict(key, displayName, categoryName).Kind == merchant.ConflictCategoryMismatch {
			return append(keys, r.MerchantsForDisplayName(displayName)...)
		}
	}
	return keys
}

func newAliasRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <raw-merchant>",
		Short: "Remove a merchant alias, restoring the default identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			key := merchant.Normalize(args[0])
			if err := a.resolver.RemoveAlias(ctx, key); err != nil {
				return err
			}
			name, cat, _ := a.resolver.Resolve(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", key, name, cat)
			return nil
		},
	}
}

func newAliasListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all merchant aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			aliases, err := a.repo.ListAliases(ctx)
			if err != nil {
				return err
			}
			for _, al := range aliases {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", al.Key, al.DisplayName, al.Category)
			}
			return nil
		},
	}
}
