// Package listcache caches listing query results keyed by canonical
// cache keys. It serves fresh entries without touching the network,
// serves stale entries immediately while revalidating in the
// background, collapses concurrent identical fetches into a single
// network call, and supports coarse invalidation by resource namespace.
package listcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hearthlabs/hearthview/internal/event"
)

// Defaults applied when Config leaves a window unset. These are UI
// tuning knobs, not contract constants; override via config.
const (
	DefaultFreshFor = 30 * time.Second
	DefaultGraceFor = 5 * time.Minute
)

// Config carries the cache freshness windows. An entry younger than
// FreshFor is served as-is; one older than FreshFor but within GraceFor
// is served immediately and revalidated in the background; anything
// older blocks on a fetch.
type Config struct {
	FreshFor time.Duration
	GraceFor time.Duration

	// Now overrides the cache's time source. Nil means time.Now; tests
	// inject a controllable clock.
	Now func() time.Time
}

// FetchFunc loads the value for a key from the network.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache is a stale-while-revalidate cache with single-flight request
// de-duplication. It is the single writer of its entries; consumers
// only call Get and Invalidate.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	flight  singleflight.Group
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

type entry[T any] struct {
	value        T
	hasValue     bool
	fetchedAt    time.Time
	revalidating bool
}

// New creates a Cache. metrics may be nil to disable instrumentation.
func New[T any](cfg Config, logger *zap.Logger, metrics *Metrics) *Cache[T] {
	if cfg.FreshFor <= 0 {
		cfg.FreshFor = DefaultFreshFor
	}
	if cfg.GraceFor <= 0 {
		cfg.GraceFor = DefaultGraceFor
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     cfg.Now,
	}
}

// Get returns the value for key. A fresh hit never issues a network
// call. A stale hit returns the cached value immediately and schedules
// exactly one background revalidation; concurrent stale readers attach
// to it rather than starting their own. A miss blocks until the
// (de-duplicated) fetch completes.
//
// On fetch failure the last-good value, if any, is returned alongside
// the error so callers can keep it on screen instead of flashing empty.
func (c *Cache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	c.mu.Lock()
	e := c.entries[key]
	if e != nil && e.hasValue {
		age := c.now().Sub(e.fetchedAt)
		if age < c.cfg.FreshFor {
			value := e.value
			c.mu.Unlock()
			c.metrics.lookup(lookupFresh)
			return value, nil
		}
		if age < c.cfg.FreshFor+c.cfg.GraceFor {
			if !e.revalidating {
				e.revalidating = true
				go c.revalidate(key, fetch)
			}
			value := e.value
			c.mu.Unlock()
			c.metrics.lookup(lookupStale)
			return value, nil
		}
	}
	c.mu.Unlock()

	c.metrics.lookup(lookupMiss)
	return c.doFetch(ctx, key, fetch)
}

// Peek returns the cached value for key without fetching or counting
// freshness. Used to keep last-good data visible under an error banner.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil && e.hasValue {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Invalidate evicts every entry in the given resource namespace.
// Invalidation is deliberately coarse: any mutation against a resource
// makes all cached filtered views of it suspect.
func (c *Cache[T]) Invalidate(namespace string) {
	prefix := namespace + "?"
	c.mu.Lock()
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()

	c.metrics.invalidated(n)
	c.logger.Debug("cache namespace invalidated",
		zap.String("namespace", namespace),
		zap.Int("evicted", n),
	)
}

// Clear evicts every entry. Used when the session expires and cached
// authenticated-only data must not survive.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry[T])
	c.mu.Unlock()

	c.metrics.invalidated(n)
	c.logger.Debug("cache cleared", zap.Int("evicted", n))
}

// WatchBus subscribes the cache to mutation and session-expiry events
// and returns an unsubscribe function. Mutations invalidate their
// resource namespace; session expiry clears everything.
func (c *Cache[T]) WatchBus(bus event.Bus) func() {
	unsubChanged := bus.Subscribe(event.TopicResourceChanged, func(_ context.Context, e event.Event) {
		if ns, ok := e.Payload.(string); ok {
			c.Invalidate(ns)
		}
	})
	unsubExpired := bus.Subscribe(event.TopicSessionExpired, func(context.Context, event.Event) {
		c.Clear()
	})
	return func() {
		unsubChanged()
		unsubExpired()
	}
}

// doFetch runs fetch through the single-flight group, stores the result,
// and honors the caller's context without cancelling the shared call.
func (c *Cache[T]) doFetch(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	// The fetch is detached from the caller's cancellation: other
	// callers may be attached to the same flight.
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(key, func() (any, error) {
		start := c.now()
		value, err := fetch(fetchCtx)
		c.metrics.fetched(c.now().Sub(start), err)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			// Retain and return last-good data alongside the error.
			prior, _ := c.Peek(key)
			return prior, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// revalidate refreshes a stale entry in the background. The entry's
// revalidating flag guarantees one refresh per staleness episode; the
// flight group additionally collapses it with any concurrent miss.
func (c *Cache[T]) revalidate(key string, fetch FetchFunc[T]) {
	c.metrics.revalidated()

	_, err, _ := c.flight.Do(key, func() (any, error) {
		start := c.now()
		value, err := fetch(context.Background())
		c.metrics.fetched(c.now().Sub(start), err)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})

	c.mu.Lock()
	if e := c.entries[key]; e != nil {
		e.revalidating = false
	}
	c.mu.Unlock()

	if err != nil {
		// Stale data stays visible; the next read retries.
		c.logger.Warn("background revalidation failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (c *Cache[T]) store(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	e := c.entries[key]
	if e == nil {
		e = &entry[T]{}
		c.entries[key] = e
	}
	e.value = value
	e.hasValue = true
	e.fetchedAt = c.now()
}

// sweepLocked drops entries past the grace window. Running it on every
// store bounds the map by the keys touched within one fresh+grace
// lifetime; with one key per keystroke the map would otherwise grow for
// the life of the process. Entries kept past expiry for error display
// are reclaimed on the next successful fetch of any key.
func (c *Cache[T]) sweepLocked() {
	horizon := c.now().Add(-(c.cfg.FreshFor + c.cfg.GraceFor))
	n := 0
	for key, e := range c.entries {
		if e.hasValue && !e.revalidating && e.fetchedAt.Before(horizon) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.metrics.invalidated(n)
		c.logger.Debug("expired entries swept", zap.Int("evicted", n))
	}
}
