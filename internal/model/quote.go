package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateStatus describes how a rate lookup concluded.
type RateStatus string

// Quote statuses.
const (
	RateResolved    RateStatus = "RESOLVED"
	RateUnavailable RateStatus = "UNAVAILABLE"
)

// ExchangeRateQuote is the result of resolving a conversion rate for a
// foreign currency on a given date. Quotes are advisory: they populate the
// draft and are then discarded, never persisted.
type ExchangeRateQuote struct {
	Pair   string
	Rate   decimal.Decimal
	Status RateStatus
}

// UnavailableQuote builds the deterministic fallback for a failed lookup:
// rate zero, so the form field shows an explicit placeholder instead of
// staying blank.
func UnavailableQuote(currency Currency) ExchangeRateQuote {
	return ExchangeRateQuote{
		Pair:   RatePair(currency),
		Rate:   decimal.Zero,
		Status: RateUnavailable,
	}
}

// RatePair names the conversion pair for a foreign currency.
func RatePair(currency Currency) string {
	return fmt.Sprintf("%s/%s", currency, CurrencyLocal)
}
