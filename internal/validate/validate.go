// Package validate gates drafts before any submission attempt.
package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// AllowedPaymentMethods is the finite set the backend accepts.
var AllowedPaymentMethods = []string{"Bank", "Cash", "Card", "Crypto"}

// FieldError reports the first field that blocks submission.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Draft checks a draft in a fixed order and stops at the first violation,
// so the user gets a single actionable message. It is pure: no I/O, and
// deterministic for the same draft.
//
// Order: client_name, amount, date, currency, category, payment_method,
// then the currency-conditional rate and the manual commission gate.
func Draft(d *model.TransactionDraft) *FieldError {
	if d.ClientName == "" {
		return &FieldError{Field: "client_name", Reason: "client name is required"}
	}
	amt, ok := d.ParsedAmount()
	if !ok {
		return &FieldError{Field: "amount", Reason: "amount must be a decimal number"}
	}
	if amt.LessThanOrEqual(decimal.Zero) {
		return &FieldError{Field: "amount", Reason: "amount must be greater than zero"}
	}
	if d.Date == "" {
		return &FieldError{Field: "date", Reason: "date is required"}
	}
	if _, err := time.Parse(model.DateLayout, d.Date); err != nil {
		return &FieldError{Field: "date", Reason: "date must be a valid YYYY-MM-DD date"}
	}
	if d.Currency == "" {
		return &FieldError{Field: "currency", Reason: "currency is required"}
	}
	if !d.Currency.Valid() {
		return &FieldError{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", d.Currency)}
	}
	if d.Category == "" {
		return &FieldError{Field: "category", Reason: "category is required"}
	}
	if !d.Category.Valid() {
		return &FieldError{Field: "category", Reason: fmt.Sprintf("unsupported category %q", d.Category)}
	}
	if d.PaymentMethod == "" {
		return &FieldError{Field: "payment_method", Reason: "payment method is required"}
	}
	if !allowedMethod(d.PaymentMethod) {
		return &FieldError{Field: "payment_method", Reason: fmt.Sprintf("unknown payment method %q", d.PaymentMethod)}
	}
	if d.NeedsRate() {
		if err := checkRate(d); err != nil {
			return err
		}
	}
	if d.ManualCommissionRate != "" {
		rate, err := decimal.NewFromString(d.ManualCommissionRate)
		if err != nil || rate.IsNegative() {
			return &FieldError{Field: "manual_commission_rate", Reason: "commission rate must be a non-negative decimal"}
		}
		if !d.CommissionVerified {
			return &FieldError{Field: "manual_commission_rate", Reason: "commission override requires a verification code"}
		}
	}
	return nil
}

func checkRate(d *model.TransactionDraft) *FieldError {
	field := "usd_rate"
	if d.Currency == model.CurrencyEUR {
		field = "eur_rate"
	}
	raw := d.Rate()
	if raw == "" {
		return &FieldError{Field: field, Reason: fmt.Sprintf("an exchange rate is required for %s", d.Currency)}
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return &FieldError{Field: field, Reason: "exchange rate must be a decimal number"}
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return &FieldError{Field: field, Reason: "exchange rate must be greater than zero"}
	}
	return nil
}

func allowedMethod(method string) bool {
	for _, m := range AllowedPaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
