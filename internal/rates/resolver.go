// Package rates resolves exchange rates for foreign-currency drafts.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Resolver looks up the conversion rate for a currency on a date.
type Resolver interface {
	Resolve(ctx context.Context, currency model.Currency, date string) model.ExchangeRateQuote
}

// HTTPResolver resolves rates against the dashboard's rate endpoint.
//
// Rate lookup is advisory: the user can always type a rate by hand. So
// Resolve never fails; anything that goes wrong degrades to an UNAVAILABLE
// quote with the zero sentinel rate.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPResolver creates a resolver for the given rate endpoint.
func NewHTTPResolver(baseURL string, httpClient *http.Client, logger *slog.Logger) *HTTPResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPResolver{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve fetches the rate for a foreign currency on the given date.
func (r *HTTPResolver) Resolve(ctx context.Context, currency model.Currency, date string) model.ExchangeRateQuote {
	if !currency.Foreign() {
		r.logger.Warn("rate requested for non-foreign currency", "currency", currency)
		return model.UnavailableQuote(currency)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		r.logger.Warn("rate requested for invalid date", "date", date)
		return model.UnavailableQuote(currency)
	}

	rate, err := r.lookup(ctx, currency, date)
	if err != nil {
		r.logger.Warn("rate lookup failed, falling back to zero sentinel",
			"currency", currency,
			"date", date,
			"error", err)
		return model.UnavailableQuote(currency)
	}

	return model.ExchangeRateQuote{
		Pair:   model.RatePair(currency),
		Rate:   rate,
		Status: model.RateResolved,
	}
}

func (r *HTTPResolver) lookup(ctx context.Context, currency model.Currency, date string) (decimal.Decimal, error) {
	u, err := url.Parse(r.baseURL + "/api/rates")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate URL: %w", err)
	}
	q := u.Query()
	q.Set("pair", model.RatePair(currency))
	q.Set("date", date)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Rate string `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable rate %q: %w", body.Rate, err)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("rate endpoint returned non-positive rate %s", rate)
	}

	return rate, nil
}
