package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/ingest"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/parser"
)

func newIngestCommand() *cobra.Command {
	var batchSize int
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest <messages.jsonl>",
		Short: "Parse an SMS backlog file into the transaction store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backlog file: %w", err)
			}
			defer f.Close()

			msgs, err := ingest.ReadMessages(f)
			if err != nil {
				return fmt.Errorf("read backlog: %w", err)
			}

			if batchSize <= 0 {
				batchSize = a.cfg.IngestBatchSize
			}
			if workers <= 0 {
				workers = a.cfg.IngestWorkers
			}

			engine := ingest.NewEngine(parser.New(), a.repo, batchSize, workers)
			report, err := engine.Run(ctx, msgs, func(processed, total int, status string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %d/%d", status, processed, total)
			})
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "total:      %d\n", report.Total)
			fmt.Fprintf(cmd.OutOrStdout(), "parsed:     %d\n", report.Parsed)
			fmt.Fprintf(cmd.OutOrStdout(), "duplicates: %d\n", report.Duplicates)
			fmt.Fprintf(cmd.OutOrStdout(), "rejected:   %d\n", report.Rejected)
			for reason, n := range report.Rejections {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", reason, n)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "messages per batch (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel parse workers (default from config)")

	return cmd
}
