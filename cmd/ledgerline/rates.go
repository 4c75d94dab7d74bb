package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/model"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Look up an exchange rate",
		Long:  `Look up the exchange rate for a foreign currency on a given date.`,
		RunE:  runRates,
	}

	cmd.Flags().String("currency", string(model.CurrencyUSD), "currency (USD, EUR)")
	cmd.Flags().String("date", time.Now().Format(model.DateLayout), "rate date (YYYY-MM-DD)")

	return cmd
}

func runRates(cmd *cobra.Command, _ []string) error {
	currency := model.Currency(strings.ToUpper(cmd.Flags().Lookup("currency").Value.String()))
	date, _ := cmd.Flags().GetString("date")

	if !currency.Foreign() {
		return fmt.Errorf("currency must be USD or EUR, got %q", currency)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}

	quote := resolver.Resolve(cmd.Context(), currency, date)
	if quote.Status == model.RateUnavailable {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("No rate available for %s on %s", quote.Pair, date))) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s on %s: %s", quote.Pair, date, quote.Rate.String()))) //nolint:forbidigo // User-facing output
	return nil
}
