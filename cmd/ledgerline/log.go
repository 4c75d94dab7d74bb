package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
)

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent submission attempts",
		RunE:  runLog,
	}

	cmd.Flags().Int("limit", 20, "number of entries to show")

	return cmd
}

func runLog(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.RecentSubmissions(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No submissions recorded yet.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Recent submissions")) //nolint:forbidigo // User-facing output
	for _, rec := range records {
		summary := fmt.Sprintf("%s  %-24s %10s %-5s", rec.SubmittedAt, rec.ClientName, rec.Amount, rec.Currency)
		switch rec.Outcome {
		case "success":
			summary = cli.FormatSuccess(fmt.Sprintf("%s  id=%d", summary, rec.TransactionID))
		case "validation_failed":
			summary = cli.FormatWarning(fmt.Sprintf("%s  %s", summary, rec.Message))
		default:
			summary = cli.FormatError(fmt.Sprintf("%s  %s", summary, rec.Message))
		}
		fmt.Println(summary) //nolint:forbidigo // User-facing output
	}
	return nil
}
