package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/commands"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	rootCmd := commands.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
