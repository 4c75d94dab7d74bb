// Package events publishes domain events for other dashboard views to
// consume. The submission pipeline only emits; it never waits for an
// acknowledgment from consumers.
package events

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// TransactionCreatedEvent tells list and dashboard views that a write
// landed and their data is stale.
type TransactionCreatedEvent struct {
	TransactionID int64     `json:"transaction_id"`
	ClientName    string    `json:"client_name"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Category      string    `json:"category"`
	Date          string    `json:"date"`
	PublishedAt   time.Time `json:"published_at"`
}

// NewTransactionCreated builds the event for a confirmed write.
func NewTransactionCreated(transactionID int64, draft *model.TransactionDraft) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		TransactionID: transactionID,
		ClientName:    draft.ClientName,
		Amount:        draft.Amount,
		Currency:      string(draft.Currency),
		Category:      string(draft.Category),
		Date:          draft.Date,
		PublishedAt:   time.Now().UTC(),
	}
}

// Publisher defines the interface for emitting domain events.
type Publisher interface {
	// PublishTransactionCreated emits a fire-and-forget creation event.
	PublishTransactionCreated(ctx context.Context, event *TransactionCreatedEvent) error

	// Close releases the underlying connection.
	Close() error
}

// NopPublisher drops every event. Used when no event bus is configured.
type NopPublisher struct{}

// PublishTransactionCreated discards the event.
func (NopPublisher) PublishTransactionCreated(_ context.Context, _ *TransactionCreatedEvent) error {
	return nil
}

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
