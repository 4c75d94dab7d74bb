package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/report"
	"github.com/ledgerline/ledgerline/internal/session"
	"github.com/ledgerline/ledgerline/internal/storage"
	"github.com/ledgerline/ledgerline/internal/submit"
	"github.com/ledgerline/ledgerline/internal/tui"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a new transaction",
		Long: `Open the add-transaction form, or with --no-input build the draft from
flags for scripting. A previously autosaved draft is restored into the
form; it is cleared only after the backend confirms the write.`,
		RunE: runSubmit,
	}

	cmd.Flags().Bool("no-input", false, "build the draft from flags instead of opening the form")
	cmd.Flags().String("client", "", "client name")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD)")
	cmd.Flags().String("amount", "", "transaction amount")
	cmd.Flags().String("currency", string(model.CurrencyLocal), "currency (LOCAL, USD, EUR)")
	cmd.Flags().String("category", "", "category (WITHDRAW, DEPOSIT)")
	cmd.Flags().String("method", "", "payment method")
	cmd.Flags().String("psp", "", "payment service provider")
	cmd.Flags().String("company", "", "company")
	cmd.Flags().String("notes", "", "notes")
	cmd.Flags().String("rate", "", "exchange rate for foreign-currency amounts")
	cmd.Flags().String("commission-rate", "", "manual commission rate override")
	cmd.Flags().String("commission-code", "", "verification code for the commission override")

	return cmd
}

// loggedSubmitter runs the orchestrator and appends every terminal outcome
// to the local audit log.
type loggedSubmitter struct {
	orch  *submit.Orchestrator
	store *storage.SQLiteStorage
}

func (s *loggedSubmitter) Submit(ctx context.Context, draft *model.TransactionDraft) model.SubmissionOutcome {
	outcome := s.orch.Submit(ctx, draft)
	if err := s.store.LogSubmission(ctx, draft, outcome); err != nil {
		slog.Warn("failed to log submission", "error", err)
	}
	return outcome
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	apiClient, err := newAPIClient()
	if err != nil {
		return err
	}
	publisher, err := newPublisher(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect event bus: %w", err)
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			slog.Warn("failed to close event publisher", "error", closeErr)
		}
	}()

	orch := submit.NewOrchestrator(submit.Config{
		Session:   session.NewGuarantor(apiClient, slog.Default()),
		Writer:    apiClient,
		Drafts:    store,
		DraftName: draftFormName,
		Events:    publisher,
		Logger:    slog.Default(),
	})
	submitter := &loggedSubmitter{orch: orch, store: store}

	if noInput, _ := cmd.Flags().GetBool("no-input"); noInput {
		return runSubmitFromFlags(ctx, cmd, submitter)
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}

	var draft *model.TransactionDraft
	saved, err := store.GetDraft(ctx, draftFormName)
	switch {
	case err == nil:
		slog.Debug("restored autosaved draft", "client", saved.ClientName)
		draft = saved
	case errors.Is(err, common.ErrNotFound):
		// Fresh form.
	default:
		slog.Warn("failed to load autosaved draft", "error", err)
	}

	return tui.Run(ctx, tui.Config{
		Submitter: submitter,
		Resolver:  resolver,
		Saver:     storage.NewAutosaver(store, draftFormName, 0),
		Draft:     draft,
	})
}

func runSubmitFromFlags(ctx context.Context, cmd *cobra.Command, submitter *loggedSubmitter) error {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	draft := &model.TransactionDraft{
		ClientName:           flag("client"),
		Date:                 flag("date"),
		Amount:               flag("amount"),
		Currency:             model.Currency(flag("currency")),
		Category:             model.Category(flag("category")),
		PaymentMethod:        flag("method"),
		PSP:                  flag("psp"),
		Company:              flag("company"),
		Notes:                flag("notes"),
		ManualCommissionRate: flag("commission-rate"),
	}
	switch draft.Currency {
	case model.CurrencyUSD:
		draft.USDRate = flag("rate")
	case model.CurrencyEUR:
		draft.EURRate = flag("rate")
	}
	if draft.ManualCommissionRate != "" {
		expected := viper.GetString("submit.commission_code")
		draft.CommissionVerified = expected != "" && flag("commission-code") == expected
	}

	outcome := submitter.Submit(ctx, draft)
	ui := report.Render(outcome)
	if ui.Kind == report.ShowSuccess {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction recorded (id %d)", ui.TransactionID))) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatError(ui.ErrorMessage)) //nolint:forbidigo // User-facing output
	return fmt.Errorf("submission failed")
}
