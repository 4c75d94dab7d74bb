package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ledgerline/ledgerline/internal/common"
)

const (
	// StreamName is the JetStream stream carrying dashboard domain events.
	StreamName = "LEDGER_EVENTS"

	// SubjectTransactionCreated is where creation events land.
	SubjectTransactionCreated = "ledger.transactions.created"

	// streamRetention is how long events are kept for slow consumers.
	streamRetention = 7 * 24 * time.Hour
)

// JetStreamPublisher publishes domain events to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewJetStreamPublisher connects to NATS and ensures the event stream
// exists. Connection setup is retried briefly since the bus may still be
// coming up.
func NewJetStreamPublisher(ctx context.Context, natsURL string, logger *slog.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var nc *nats.Conn
	err := common.WithRetry(ctx, func() error {
		conn, connErr := nats.Connect(natsURL,
			nats.Name("ledgerline"),
			nats.Timeout(5*time.Second),
			nats.ReconnectWait(time.Second),
		)
		if connErr != nil {
			return &common.RetryableError{Err: connErr, Retryable: true}
		}
		nc = conn
		return nil
	}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, logger: logger}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Debug("event publisher initialized", "url", natsURL, "stream", StreamName)
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Dashboard domain events",
		Subjects:    []string{"ledger.transactions.*"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      streamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishTransactionCreated emits a creation event to JetStream.
func (p *JetStreamPublisher) PublishTransactionCreated(ctx context.Context, event *TransactionCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, SubjectTransactionCreated, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published transaction created event",
		"subject", SubjectTransactionCreated,
		"transaction_id", event.TransactionID)
	return nil
}

// Close closes the NATS connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
