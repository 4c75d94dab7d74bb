// Package api is the HTTP client for the dashboard backend. It covers the
// auth probe, session refresh, anti-forgery token fetch, and the transaction
// write endpoint. Retry policy lives with the callers; this package only
// classifies failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/ledgerline/ledgerline/internal/common"
)

// ErrEmptyToken means the token endpoint answered but carried no token.
// That is a server-side anomaly, not a transient outage: callers must fail
// fast instead of retrying.
var ErrEmptyToken = errors.New("token endpoint returned an empty token")

// Credentials is the stored long-lived credential used to re-authenticate
// when the session cookie has expired.
type Credentials struct {
	Username string
	Password string
}

// Client talks to the dashboard backend. The session cookie lives in the
// client's cookie jar; the anti-forgery token is handed back to callers and
// attached per write.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client. A nil httpClient gets a cookie jar
// and a 10 second per-call timeout.
func NewClient(baseURL string, creds Credentials, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Timeout: 10 * time.Second, Jar: jar}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CheckAuth probes whether the current session is still valid. It is a
// lightweight read-only call; a definitive "no" is not an error.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/check", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, transient(fmt.Errorf("auth check failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("auth check returned status %d", resp.StatusCode)
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode auth check response: %w", err)
	}

	return body.Authenticated, nil
}

// RefreshSession re-authenticates with the stored credentials. Returns false
// when the backend rejects them; the session cookie is replaced on success.
func (c *Client) RefreshSession(ctx context.Context) (bool, error) {
	payload, err := json.Marshal(map[string]string{
		"username": c.creds.Username,
		"password": c.creds.Password,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, transient(fmt.Errorf("session refresh failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		c.logger.Debug("session refreshed", "user", c.creds.Username)
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	}
	return false, fmt.Errorf("session refresh returned status %d", resp.StatusCode)
}

// SecurityToken fetches a fresh anti-forgery token scoped to the current
// session. An empty body is ErrEmptyToken, which callers must not retry.
func (c *Client) SecurityToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transient(fmt.Errorf("token fetch failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Token == "" {
		c.logger.Error("token endpoint reachable but returned no token")
		return "", ErrEmptyToken
	}

	return body.Token, nil
}

// transient tags transport-level failures (no response at all) as retryable.
func transient(err error) error {
	return &common.RetryableError{Err: err, Retryable: true}
}
