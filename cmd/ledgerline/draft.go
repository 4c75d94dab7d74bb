package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or discard the autosaved draft",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the autosaved draft",
		RunE:  runDraftShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Discard the autosaved draft",
		RunE:  runDraftClear,
	})

	return cmd
}

func runDraftShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	draft, err := store.GetDraft(ctx, draftFormName)
	if errors.Is(err, common.ErrNotFound) {
		fmt.Println(cli.SubtleStyle.Render("No autosaved draft.")) //nolint:forbidigo // User-facing output
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderBox("Autosaved draft", formatDraft(draft))) //nolint:forbidigo // User-facing output
	return nil
}

func runDraftClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearDraft(ctx, draftFormName); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess("Draft cleared")) //nolint:forbidigo // User-facing output
	return nil
}

func formatDraft(d *model.TransactionDraft) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-16s %s\n", label+":", value)
		}
	}
	line("Client", d.ClientName)
	line("Date", d.Date)
	line("Amount", d.Amount)
	line("Currency", string(d.Currency))
	line("Category", string(d.Category))
	line("Method", d.PaymentMethod)
	line("Rate", d.Rate())
	line("PSP", d.PSP)
	line("Company", d.Company)
	line("Notes", d.Notes)
	return strings.TrimRight(b.String(), "\n")
}
