package listcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hearthlabs/hearthview/internal/event"
	"github.com/hearthlabs/hearthview/internal/listcache"
	"github.com/hearthlabs/hearthview/internal/testutil"
)

func newTestCache(t *testing.T) (*listcache.Cache[int], *testutil.Clock) {
	t.Helper()
	clk := testutil.NewClock()
	c := listcache.New[int](listcache.Config{
		FreshFor: time.Minute,
		GraceFor: 10 * time.Minute,
		Now:      clk.Now,
	}, testutil.Logger(), nil)
	return c, clk
}

func countingFetch(calls *int32, value int) listcache.FetchFunc[int] {
	return func(context.Context) (int, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

// waitForValue polls until the cached value for key matches want.
func waitForValue(t *testing.T, c *listcache.Cache[int], key string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := c.Peek(key); ok && got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("cache value for %q never became %d", key, want)
}

func TestFreshHitSkipsNetwork(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, "properties?page=1", countingFetch(&calls, 7))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != 7 {
			t.Errorf("Get = %d, want 7", got)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times for fresh entry, want 1", n)
	}
}

func TestConcurrentMissesSingleFlight(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]int, readers)
	errs := make([]error, readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(ctx, "properties?page=1", fetch)
		}(i)
	}

	// Let all readers attach to the flight before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times for %d concurrent readers, want 1", n, readers)
	}
	for i := 0; i < readers; i++ {
		if errs[i] != nil {
			t.Errorf("reader %d error: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("reader %d got %d, want 42", i, results[i])
		}
	}
}

func TestStaleServesImmediatelyAndRevalidatesOnce(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()
	key := "properties?page=1"

	var calls int32
	if _, err := c.Get(ctx, key, countingFetch(&calls, 1)); err != nil {
		t.Fatalf("seed Get: %v", err)
	}

	// Into the grace window: stale but servable.
	clk.Advance(2 * time.Minute)

	// Hold the revalidation open until all stale reads have been served.
	gate := make(chan struct{})
	gated := func(context.Context) (int, error) {
		<-gate
		atomic.AddInt32(&calls, 1)
		return 2, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, key, gated)
		if err != nil {
			t.Fatalf("stale Get: %v", err)
		}
		if got != 1 {
			t.Errorf("stale Get = %d, want cached 1", got)
		}
	}

	// Exactly one background revalidation lands the new value.
	close(gate)
	waitForValue(t, c, key, 2)
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times across stale reads, want 2 (seed + one revalidation)", n)
	}
}

func TestExpiredEntryBlocksOnFetch(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()
	key := "properties?page=1"

	var calls int32
	if _, err := c.Get(ctx, key, countingFetch(&calls, 1)); err != nil {
		t.Fatalf("seed Get: %v", err)
	}

	// Past fresh + grace: the entry may no longer be served stale.
	clk.Advance(time.Hour)

	got, err := c.Get(ctx, key, countingFetch(&calls, 2))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 2 {
		t.Errorf("Get = %d after expiry, want refetched 2", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times, want 2", n)
	}
}

func TestStoreSweepsExpiredEntries(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()

	var calls int32
	// Warm several keys, as a burst of keystrokes would.
	keys := []string{"properties?location=a&page=1", "properties?location=au&page=1", "properties?location=aus&page=1"}
	for _, key := range keys {
		if _, err := c.Get(ctx, key, countingFetch(&calls, 1)); err != nil {
			t.Fatalf("seed Get %q: %v", key, err)
		}
	}

	// Past fresh + grace: the entries are dead weight.
	clk.Advance(time.Hour)

	// A successful fetch of any key reclaims them.
	if _, err := c.Get(ctx, "properties?location=austin&page=1", countingFetch(&calls, 2)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	for _, key := range keys {
		if _, ok := c.Peek(key); ok {
			t.Errorf("expired entry %q survived the sweep", key)
		}
	}
	if _, ok := c.Peek("properties?location=austin&page=1"); !ok {
		t.Error("freshly stored entry was swept")
	}
}

func TestFetchErrorRetainsLastGood(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()
	key := "properties?page=1"

	var calls int32
	if _, err := c.Get(ctx, key, countingFetch(&calls, 1)); err != nil {
		t.Fatalf("seed Get: %v", err)
	}

	clk.Advance(time.Hour)

	wantErr := errors.New("listing fetch: connection refused")
	got, err := c.Get(ctx, key, func(context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Get error = %v, want %v", err, wantErr)
	}
	// The prior value survives for display under an error banner.
	if got != 1 {
		t.Errorf("Get = %d on error, want retained 1", got)
	}
}

func TestInvalidateEvictsNamespace(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var propCalls, sellerCalls int32
	if _, err := c.Get(ctx, "properties?page=1", countingFetch(&propCalls, 1)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "sellers?page=1", countingFetch(&sellerCalls, 1)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	c.Invalidate("properties")

	// The properties key must refetch; the sellers key is untouched.
	if _, err := c.Get(ctx, "properties?page=1", countingFetch(&propCalls, 2)); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if _, err := c.Get(ctx, "sellers?page=1", countingFetch(&sellerCalls, 2)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if n := atomic.LoadInt32(&propCalls); n != 2 {
		t.Errorf("properties fetched %d times, want 2 (invalidated)", n)
	}
	if n := atomic.LoadInt32(&sellerCalls); n != 1 {
		t.Errorf("sellers fetched %d times, want 1 (unaffected)", n)
	}
}

func TestWatchBusMutationInvalidates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	bus := event.NewBus(testutil.Logger())
	defer c.WatchBus(bus)()

	var calls int32
	if _, err := c.Get(ctx, "properties?page=1", countingFetch(&calls, 1)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	bus.Publish(ctx, event.Event{
		Topic:   event.TopicResourceChanged,
		Payload: "properties",
	})

	if _, err := c.Get(ctx, "properties?page=1", countingFetch(&calls, 2)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times after mutation event, want 2", n)
	}
}

func TestWatchBusSessionExpiryClears(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	bus := event.NewBus(testutil.Logger())
	defer c.WatchBus(bus)()

	var calls int32
	if _, err := c.Get(ctx, "properties?page=1", countingFetch(&calls, 1)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	bus.Publish(ctx, event.Event{Topic: event.TopicSessionExpired})

	if _, ok := c.Peek("properties?page=1"); ok {
		t.Error("entry survived session expiry clear")
	}
}
