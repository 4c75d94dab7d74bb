// Package session guarantees a valid authenticated session and a fresh
// anti-forgery token immediately before a mutating request.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/model"
)

// Backend is the slice of the API client the guarantor needs.
type Backend interface {
	CheckAuth(ctx context.Context) (bool, error)
	RefreshSession(ctx context.Context) (bool, error)
	SecurityToken(ctx context.Context) (string, error)
}

// Guarantor ensures a usable session/token pair exists on demand. It holds
// no session state itself; the cookie lives in the backend client, injected
// here so tests can substitute a fake.
type Guarantor struct {
	backend Backend
	logger  *slog.Logger
}

// NewGuarantor creates a guarantor over the given backend.
func NewGuarantor(backend Backend, logger *slog.Logger) *Guarantor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guarantor{backend: backend, logger: logger}
}

// EnsureFreshSession probes the session, refreshes it if needed, and fetches
// a fresh anti-forgery token.
//
// A definitive "credentials rejected" comes back as Authenticated=false with
// a nil error. An empty token body is api.ErrEmptyToken and must not be
// retried; transport failures are tagged transient for the caller's retry
// policy. When forceRefresh is set the probe is skipped and the session is
// re-established unconditionally, which is what the submit retry path needs
// after a token-mismatch rejection.
func (g *Guarantor) EnsureFreshSession(ctx context.Context, forceRefresh bool) (model.SessionState, error) {
	if forceRefresh {
		ok, err := g.backend.RefreshSession(ctx)
		if err != nil {
			return model.SessionState{}, err
		}
		if !ok {
			return model.SessionState{Authenticated: false}, nil
		}
	} else {
		authenticated, err := g.backend.CheckAuth(ctx)
		if err != nil {
			return model.SessionState{}, err
		}
		if !authenticated {
			g.logger.Debug("session invalid, refreshing")
			ok, refreshErr := g.backend.RefreshSession(ctx)
			if refreshErr != nil {
				return model.SessionState{}, refreshErr
			}
			if !ok {
				return model.SessionState{Authenticated: false}, nil
			}
		}
	}

	token, err := g.backend.SecurityToken(ctx)
	if err == nil {
		return model.SessionState{Authenticated: true, Token: token}, nil
	}
	if errors.Is(err, api.ErrEmptyToken) {
		// Server-side anomaly. Fail fast rather than hammer the endpoint.
		return model.SessionState{}, err
	}

	// The token fetch can fail because the refresh raced a session expiry.
	// One more refresh, then one more fetch, then give up.
	g.logger.Debug("token fetch failed, refreshing session once and retrying", "error", err)
	ok, refreshErr := g.backend.RefreshSession(ctx)
	if refreshErr != nil {
		return model.SessionState{}, refreshErr
	}
	if !ok {
		return model.SessionState{Authenticated: false}, nil
	}

	token, err = g.backend.SecurityToken(ctx)
	if err != nil {
		return model.SessionState{}, err
	}
	return model.SessionState{Authenticated: true, Token: token}, nil
}
