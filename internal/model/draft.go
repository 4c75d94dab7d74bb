// Package model defines the domain types shared across the submission pipeline.
package model

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by drafts and the backend API.
const DateLayout = "2006-01-02"

// Currency identifies the currency a transaction amount is denominated in.
type Currency string

// Supported currencies. Local amounts need no conversion; foreign amounts
// carry an exchange rate into the local currency.
const (
	CurrencyLocal Currency = "LOCAL"
	CurrencyUSD   Currency = "USD"
	CurrencyEUR   Currency = "EUR"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyLocal, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// Foreign reports whether amounts in c require an exchange rate.
func (c Currency) Foreign() bool {
	return c == CurrencyUSD || c == CurrencyEUR
}

// Category identifies the direction of a transaction.
type Category string

// Supported categories.
const (
	CategoryWithdraw Category = "WITHDRAW"
	CategoryDeposit  Category = "DEPOSIT"
)

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	return c == CategoryWithdraw || c == CategoryDeposit
}

// TransactionDraft is the user's in-progress form state. It is mutated
// field-by-field as the user types, autosaved locally, and cleared only
// after a confirmed successful submission.
type TransactionDraft struct {
	ClientName           string   `json:"client_name"`
	Date                 string   `json:"date"`
	Amount               string   `json:"amount"`
	Currency             Currency `json:"currency"`
	Category             Category `json:"category"`
	PaymentMethod        string   `json:"payment_method"`
	PSP                  string   `json:"psp,omitempty"`
	Company              string   `json:"company,omitempty"`
	Notes                string   `json:"notes,omitempty"`
	EURRate              string   `json:"eur_rate,omitempty"`
	USDRate              string   `json:"usd_rate,omitempty"`
	ManualCommissionRate string   `json:"manual_commission_rate,omitempty"`
	CommissionVerified   bool     `json:"commission_verified,omitempty"`
}

// Rate returns the exchange rate string matching the draft's currency.
// Local-currency drafts have no rate.
func (d *TransactionDraft) Rate() string {
	switch d.Currency {
	case CurrencyUSD:
		return d.USDRate
	case CurrencyEUR:
		return d.EURRate
	}
	return ""
}

// ApplyQuote writes a resolved quote into the rate field for the draft's
// currency. Unavailable quotes still land as the zero sentinel so the field
// is visibly populated rather than silently blank.
func (d *TransactionDraft) ApplyQuote(q ExchangeRateQuote) {
	switch d.Currency {
	case CurrencyUSD:
		d.USDRate = q.Rate.String()
	case CurrencyEUR:
		d.EURRate = q.Rate.String()
	}
}

// NeedsRate reports whether submission requires a positive exchange rate.
func (d *TransactionDraft) NeedsRate() bool {
	return d.Currency.Foreign()
}

// ParsedAmount parses the amount field. The second return is false when the
// field is empty or not a decimal.
func (d *TransactionDraft) ParsedAmount() (decimal.Decimal, bool) {
	amt, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return decimal.Zero, false
	}
	return amt, true
}
