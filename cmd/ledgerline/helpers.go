package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/rates"
	"github.com/ledgerline/ledgerline/internal/storage"
)

// draftFormName keys the autosaved add-transaction draft in local storage.
const draftFormName = "add-transaction"

// initStorage opens the local database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		defaultPath, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine database path: %w", err)
		}
		dbPath = defaultPath
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	return store, nil
}

// newAPIClient builds the backend client from config.
func newAPIClient() (*api.Client, error) {
	baseURL := viper.GetString("api.base_url")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: api.base_url", common.ErrMissingConfig)
	}
	creds := api.Credentials{
		Username: viper.GetString("api.username"),
		Password: viper.GetString("api.password"),
	}
	if creds.Username == "" {
		return nil, fmt.Errorf("%w: api.username", common.ErrMissingConfig)
	}

	var httpClient *http.Client
	if timeout := viper.GetDuration("api.timeout"); timeout > 0 {
		httpClient = &http.Client{Timeout: timeout}
	}

	return api.NewClient(baseURL, creds, httpClient, slog.Default()), nil
}

// newResolver builds the rate resolver. The rate source defaults to the
// dashboard backend but can point elsewhere.
func newResolver() (*rates.HTTPResolver, error) {
	baseURL := viper.GetString("rates.base_url")
	if baseURL == "" {
		baseURL = viper.GetString("api.base_url")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: rates.base_url or api.base_url", common.ErrMissingConfig)
	}
	return rates.NewHTTPResolver(baseURL, nil, slog.Default()), nil
}

// newPublisher connects the domain event bus when one is configured,
// otherwise events are dropped.
func newPublisher(ctx context.Context) (events.Publisher, error) {
	natsURL := viper.GetString("nats.url")
	if natsURL == "" {
		slog.Debug("no event bus configured, domain events will be dropped")
		return events.NopPublisher{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return events.NewJetStreamPublisher(connectCtx, natsURL, slog.Default())
}
