// Package event provides the in-process pub/sub bus that carries
// cross-cutting signals between the client core's components: session
// expiry observed by the transport, logins and logouts, and resource
// mutations that invalidate cached listings.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topics published by the client core.
const (
	// TopicUnauthorized is published by the API client whenever any
	// request comes back 401. Payload: the request path (string).
	TopicUnauthorized = "auth.unauthorized"

	// TopicSessionExpired is published by the session store after it has
	// been forced anonymous by a 401. Payload: nil.
	TopicSessionExpired = "session.expired"

	// TopicAuthenticated is published after a successful login or probe.
	// Payload: *models.User.
	TopicAuthenticated = "session.authenticated"

	// TopicResourceChanged is published after any successful
	// create/update/delete mutation. Payload: the resource namespace
	// whose cached listings are now suspect (string, e.g. "properties").
	TopicResourceChanged = "properties.changed"
)

// Event is a single bus message.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler processes a single event. Handlers run synchronously during
// Publish and must not block for long.
type Handler func(ctx context.Context, e Event)

// Bus is the interface consumed by components; satisfied by *MemoryBus
// and by testutil.MockBus.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event)
	Subscribe(topic string, handler Handler) func()
	SubscribeAll(handler Handler) func()
}

// Compile-time interface guard.
var _ Bus = (*MemoryBus)(nil)

// MemoryBus is a thread-safe in-process event bus. Handlers for a topic
// run in subscription order; a panicking handler is recovered and logged
// so it cannot take down its siblings.
type MemoryBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler // topic -> id -> handler
	global   map[int]Handler
	logger   *zap.Logger
}

// NewBus creates a new MemoryBus.
func NewBus(logger *zap.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string]map[int]Handler),
		global:   make(map[int]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a single topic and returns an
// unsubscribe function.
func (b *MemoryBus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]Handler)
	}
	b.handlers[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}
}

// SubscribeAll registers a handler for every topic and returns an
// unsubscribe function.
func (b *MemoryBus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.global[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.global, id)
	}
}

// Publish delivers the event synchronously to all matching handlers.
// Publishing with no subscribers is not an error.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	for _, h := range b.snapshot(event.Topic) {
		b.dispatch(ctx, h, event)
	}
	return nil
}

// PublishAsync delivers the event on a separate goroutine and returns
// immediately.
func (b *MemoryBus) PublishAsync(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	handlers := b.snapshot(event.Topic)
	go func() {
		for _, h := range handlers {
			b.dispatch(ctx, h, event)
		}
	}()
}

// snapshot copies the handler set under the read lock so Publish never
// holds the lock while running handlers (which may re-subscribe).
func (b *MemoryBus) snapshot(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[topic])+len(b.global))
	for _, h := range b.handlers[topic] {
		out = append(out, h)
	}
	for _, h := range b.global {
		out = append(out, h)
	}
	return out
}

func (b *MemoryBus) dispatch(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, event)
}
