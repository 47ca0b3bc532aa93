package nats

import (
	"context"
	"sync"

	"github.com/brojonat/xrplwatch/service/journal"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*MatchEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*MatchEvent, 0),
	}
}

// PublishMatch records the event and returns any configured error.
func (m *MockPublisher) PublishMatch(ctx context.Context, account string, entry journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, FromJournalEntry(account, entry))
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*MatchEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*MatchEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForAddress returns events published for one blacklisted address.
func (m *MockPublisher) GetPublishedEventsForAddress(address string) []*MatchEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*MatchEvent, 0)
	for _, event := range m.publishedEvents {
		if event.BlacklistedAddress == address {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on PublishMatch.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
