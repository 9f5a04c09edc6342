package listcache

import (
	"context"
	"sync"
)

// Snapshot is a point-in-time read of a View.
type Snapshot[T any] struct {
	Key   string
	Value T
	Err   error
	Ready bool
}

// View is the visible result of the most recent load request. Each Load
// bumps a generation; a response arriving for a superseded generation
// still warms the cache but is discarded here, so the view always
// reflects the last request, never the last response.
type View[T any] struct {
	mu    sync.Mutex
	cache *Cache[T]
	gen   uint64
	snap  Snapshot[T]
}

// NewView creates a View over cache.
func NewView[T any](cache *Cache[T]) *View[T] {
	return &View[T]{cache: cache}
}

// Load makes key the view's current request and resolves it through the
// cache asynchronously. The returned channel closes when this attempt
// has settled, whether its result was applied or discarded.
func (v *View[T]) Load(ctx context.Context, key string, fetch FetchFunc[T]) <-chan struct{} {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.snap.Key = key
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		value, err := v.cache.Get(ctx, key, fetch)

		v.mu.Lock()
		defer v.mu.Unlock()
		if gen != v.gen {
			// Superseded by a newer request; discard on arrival.
			return
		}
		v.snap.Value = value
		v.snap.Err = err
		v.snap.Ready = true
	}()
	return done
}

// Snapshot returns the current visible state.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}
