package commands

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "smsledger",
		Short:   "SMS-based expense tracking",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newGroupsCommand())
	rootCmd.AddCommand(newAliasCommand())
	rootCmd.AddCommand(newCategoryCommand())
	rootCmd.AddCommand(newBudgetCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newStatusCommand())

	return rootCmd
}
