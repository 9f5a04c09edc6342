package testutil

import (
	"context"
	"sync"

	"github.com/hearthlabs/hearthview/internal/event"
)

// Compile-time interface check.
var _ event.Bus = (*MockBus)(nil)

// MockBus is a thread-safe in-memory event bus that records all published
// events for later inspection.
type MockBus struct {
	mu     sync.Mutex
	events []event.Event
}

// NewMockBus returns a new MockBus.
func NewMockBus() *MockBus {
	return &MockBus{}
}

// Publish records an event synchronously.
func (b *MockBus) Publish(_ context.Context, e event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

// PublishAsync records an event (same as Publish in tests).
func (b *MockBus) PublishAsync(_ context.Context, e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Subscribe is a no-op that returns a no-op unsubscribe function.
func (b *MockBus) Subscribe(_ string, _ event.Handler) func() {
	return func() {}
}

// SubscribeAll is a no-op that returns a no-op unsubscribe function.
func (b *MockBus) SubscribeAll(_ event.Handler) func() {
	return func() {}
}

// Events returns a copy of all recorded events.
func (b *MockBus) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsForTopic returns the recorded events with the given topic.
func (b *MockBus) EventsForTopic(topic string) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Event
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears all recorded events.
func (b *MockBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
