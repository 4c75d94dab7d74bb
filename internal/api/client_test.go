package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/common"
)

func TestClient_CheckAuth(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		status        int
		want          bool
		wantErr       bool
		wantRetryable bool
	}{
		{
			name:   "authenticated session",
			status: http.StatusOK,
			body:   `{"authenticated": true}`,
			want:   true,
		},
		{
			name:   "expired session",
			status: http.StatusOK,
			body:   `{"authenticated": false}`,
			want:   false,
		},
		{
			name:   "401 is a definitive no, not an error",
			status: http.StatusUnauthorized,
			want:   false,
		},
		{
			name:   "403 is a definitive no, not an error",
			status: http.StatusForbidden,
			want:   false,
		},
		{
			name:    "500 is an error",
			status:  http.StatusInternalServerError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/auth/check", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, Credentials{}, server.Client(), nil)
			got, err := client.CheckAuth(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_CheckAuth_TransportFailureIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, Credentials{}, nil, nil)
	_, err := client.CheckAuth(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}

func TestClient_RefreshSession(t *testing.T) {
	var gotCreds map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/refresh", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCreds))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{Username: "ops", Password: "hunter2"}, server.Client(), nil)
	ok, err := client.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"username": "ops", "password": "hunter2"}, gotCreds)
}

func TestClient_RefreshSession_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{Username: "ops", Password: "stale"}, server.Client(), nil)
	ok, err := client.RefreshSession(context.Background())
	require.NoError(t, err, "a definitive rejection is not an error")
	assert.False(t, ok)
}

func TestClient_SecurityToken(t *testing.T) {
	tests := []struct {
		wantErrIs error
		name      string
		body      string
		wantToken string
		status    int
		wantErr   bool
	}{
		{
			name:      "token returned",
			status:    http.StatusOK,
			body:      `{"token": "tok-abc123"}`,
			wantToken: "tok-abc123",
		},
		{
			name:      "empty token is a fail-fast error",
			status:    http.StatusOK,
			body:      `{"token": ""}`,
			wantErr:   true,
			wantErrIs: ErrEmptyToken,
		},
		{
			name:      "missing token field is a fail-fast error",
			status:    http.StatusOK,
			body:      `{}`,
			wantErr:   true,
			wantErrIs: ErrEmptyToken,
		},
		{
			name:    "non-200 is an error",
			status:  http.StatusBadGateway,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/auth/token", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, Credentials{}, server.Client(), nil)
			token, err := client.SecurityToken(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
					assert.False(t, common.IsRetryable(err), "empty token must not be retried")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}
