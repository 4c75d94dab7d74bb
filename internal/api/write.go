package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// TransactionPayload is the wire form of a draft for the write endpoint.
type TransactionPayload struct {
	ClientName           string `json:"client_name"`
	Date                 string `json:"date"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Category             string `json:"category"`
	PaymentMethod        string `json:"payment_method"`
	PSP                  string `json:"psp,omitempty"`
	Company              string `json:"company,omitempty"`
	Notes                string `json:"notes,omitempty"`
	ExchangeRate         string `json:"exchange_rate,omitempty"`
	ManualCommissionRate string `json:"manual_commission_rate,omitempty"`
}

// PayloadFromDraft maps a validated draft onto the wire payload. Rates are
// normalized through decimal so "30.50" and "30.5" serialize identically.
func PayloadFromDraft(d *model.TransactionDraft) TransactionPayload {
	p := TransactionPayload{
		ClientName:           d.ClientName,
		Date:                 d.Date,
		Amount:               d.Amount,
		Currency:             string(d.Currency),
		Category:             string(d.Category),
		PaymentMethod:        d.PaymentMethod,
		PSP:                  d.PSP,
		Company:              d.Company,
		Notes:                d.Notes,
		ManualCommissionRate: d.ManualCommissionRate,
	}
	if rate := d.Rate(); rate != "" {
		if parsed, err := decimal.NewFromString(rate); err == nil {
			p.ExchangeRate = parsed.String()
		} else {
			p.ExchangeRate = rate
		}
	}
	return p
}

// CreatedTransaction is the backend's acknowledgment of a write.
type CreatedTransaction struct {
	ID int64
}

// WriteError is a definitive non-2xx answer from the write endpoint.
type WriteError struct {
	StatusCode int
	Body       []byte
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write endpoint returned status %d: %s", e.StatusCode, string(e.Body))
}

// SecurityTokenRelated reports whether the failure plausibly means the
// session or anti-forgery token went stale, in which case a refreshed
// session may succeed. 401 and 403 qualify by status alone; 400 only when
// the body carries a token marker.
func (e *WriteError) SecurityTokenRelated() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return hasTokenMarker(e.Body)
	}
	return false
}

// UserMessage extracts the most useful text from the legacy error shapes
// the backend emits, falling back to a generic message.
func (e *WriteError) UserMessage() string {
	var body map[string]any
	if err := json.Unmarshal(e.Body, &body); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("the server rejected the transaction (status %d)", e.StatusCode)
}

func hasTokenMarker(raw []byte) bool {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	for _, key := range []string{"csrf_error", "token_expired", "token_mismatch"} {
		if flag, ok := body[key].(bool); ok && flag {
			return true
		}
	}
	for _, key := range []string{"code", "error", "message"} {
		s, ok := body[key].(string)
		if !ok {
			continue
		}
		s = strings.ToLower(s)
		if strings.Contains(s, "csrf") || strings.Contains(s, "forgery") || strings.Contains(s, "security token") {
			return true
		}
	}
	return false
}

// successShape recognizes one legacy success-body layout, returning the
// transaction id when it matches.
type successShape func(map[string]any) (int64, bool)

// The backend has answered writes with several body layouts over the years.
// The matchers run in order; the first hit wins. This is a compatibility
// shim.
// TODO: collapse to the {transaction:{id}} shape once the backend stops
// emitting the legacy responses.
var successShapes = []successShape{
	func(body map[string]any) (int64, bool) {
		return parseID(body["id"])
	},
	func(body map[string]any) (int64, bool) {
		nested, ok := body["transaction"].(map[string]any)
		if !ok {
			return 0, false
		}
		return parseID(nested["id"])
	},
	func(body map[string]any) (int64, bool) {
		if flag, ok := body["success"].(bool); ok && flag {
			return 0, true
		}
		return 0, false
	},
}

func parseID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// CreateTransaction posts the payload with the anti-forgery token attached.
// Transport failures come back as transient errors, definitive rejections
// as *WriteError, and any recognized 2xx success shape as the created
// transaction.
func (c *Client) CreateTransaction(ctx context.Context, payload TransactionPayload, token string) (*CreatedTransaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transactions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transient(fmt.Errorf("write request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(fmt.Errorf("failed to read write response: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		return nil, &WriteError{StatusCode: resp.StatusCode, Body: body}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("write succeeded with status %d but the body did not parse: %w", resp.StatusCode, err)
	}

	for _, matches := range successShapes {
		if id, ok := matches(decoded); ok {
			c.logger.Debug("transaction written", "transaction_id", id, "status", resp.StatusCode)
			return &CreatedTransaction{ID: id}, nil
		}
	}

	return nil, fmt.Errorf("write succeeded with status %d but the body matched no known success shape", resp.StatusCode)
}
