package tui

import (
	"github.com/ledgerline/ledgerline/internal/model"
)

// submitFinishedMsg carries the terminal outcome of a submission run.
type submitFinishedMsg struct {
	outcome model.SubmissionOutcome
}

// rateResolvedMsg carries a freshly resolved exchange rate quote.
type rateResolvedMsg struct {
	currency model.Currency
	quote    model.ExchangeRateQuote
}
