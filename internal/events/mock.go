package events

import (
	"context"
	"sync"
)

// MockPublisher records events for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	published    []*TransactionCreatedEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishTransactionCreated records the event and returns any configured error.
func (m *MockPublisher) PublishTransactionCreated(_ context.Context, event *TransactionCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.published = append(m.published, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []*TransactionCreatedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*TransactionCreatedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// SetPublishError configures the mock to fail publishing.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
