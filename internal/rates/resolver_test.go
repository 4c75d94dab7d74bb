package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestHTTPResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rates", r.URL.Path)
		assert.Equal(t, "USD/LOCAL", r.URL.Query().Get("pair"))
		assert.Equal(t, "2026-01-15", r.URL.Query().Get("date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rate": "30.25"}`))
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL, server.Client(), nil)
	quote := resolver.Resolve(context.Background(), model.CurrencyUSD, "2026-01-15")

	assert.Equal(t, model.RateResolved, quote.Status)
	assert.Equal(t, "USD/LOCAL", quote.Pair)
	assert.Equal(t, "30.25", quote.Rate.String())
}

func TestHTTPResolver_NeverErrors(t *testing.T) {
	tests := []struct {
		handler http.HandlerFunc
		name    string
	}{
		{
			name: "endpoint returns 500",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "endpoint returns 404",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "body is not JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
		{
			name: "rate is not a number",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"rate": "soon"}`))
			},
		},
		{
			name: "rate is zero",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"rate": "0"}`))
			},
		},
		{
			name: "rate is negative",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"rate": "-1.5"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			resolver := NewHTTPResolver(server.URL, server.Client(), nil)
			quote := resolver.Resolve(context.Background(), model.CurrencyEUR, "2026-01-15")

			// Every failure degrades to the same deterministic fallback.
			assert.Equal(t, model.UnavailableQuote(model.CurrencyEUR), quote)
		})
	}
}

func TestHTTPResolver_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close() // connection refused from here on

	resolver := NewHTTPResolver(server.URL, nil, nil)
	quote := resolver.Resolve(context.Background(), model.CurrencyUSD, "2026-01-15")
	assert.Equal(t, model.UnavailableQuote(model.CurrencyUSD), quote)
}

func TestHTTPResolver_RejectsBadInputsWithoutCalling(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL, server.Client(), nil)

	quote := resolver.Resolve(context.Background(), model.CurrencyLocal, "2026-01-15")
	assert.Equal(t, model.RateUnavailable, quote.Status)

	quote = resolver.Resolve(context.Background(), model.CurrencyUSD, "not-a-date")
	assert.Equal(t, model.RateUnavailable, quote.Status)

	require.False(t, called, "no lookup should fire for invalid inputs")
}
