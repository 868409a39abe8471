package news

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// invokeCall records one gateway invocation observed by the fake invoker.
type invokeCall struct {
	query    string
	category fn.Option[string]
	at       time.Time
}

// fakeInvoker is a scriptable Invoker for controller tests.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []invokeCall
	respond func(query string, category fn.Option[string]) ([]Article, error)
}

func (f *fakeInvoker) FetchNews(_ context.Context, query string,
	category fn.Option[string]) ([]Article, error) {

	f.mu.Lock()
	f.calls = append(f.calls, invokeCall{
		query:    query,
		category: category,
		at:       time.Now(),
	})
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return testArticles("default"), nil
	}

	return respond(query, category)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInvoker) lastCall() invokeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// newTestController wires a controller with an update channel so tests can
// wait deterministically for fetches to settle.
func newTestController(t *testing.T, invoker Invoker, cache *Cache,
	debounce time.Duration) (*Controller, chan Snapshot) {

	t.Helper()

	updates := make(chan Snapshot, 16)
	ctrl := NewController(ControllerConfig{
		Invoker:  invoker,
		Cache:    cache,
		Debounce: debounce,
		OnUpdate: func(s Snapshot) { updates <- s },
	})
	t.Cleanup(ctrl.Close)

	return ctrl, updates
}

func awaitUpdate(t *testing.T, updates chan Snapshot) Snapshot {
	t.Helper()

	select {
	case snap := <-updates:
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for controller update")
		return Snapshot{}
	}
}

// TestControllerDebounceCollapsing verifies that rapid input changes
// collapse into a single fetch carrying the final input pair, fired only
// after the quiescence window measured from the last change.
func TestControllerDebounceCollapsing(t *testing.T) {
	invoker := &fakeInvoker{}
	ctrl, updates := newTestController(
		t, invoker, nil, 150*time.Millisecond,
	)

	ctrl.SetQuery("f", CategoryAll)
	time.Sleep(30 * time.Millisecond)
	ctrl.SetQuery("fin", CategoryAll)
	time.Sleep(30 * time.Millisecond)
	lastChange := time.Now()
	ctrl.SetQuery("fintech", "finance")

	snap := awaitUpdate(t, updates)

	require.Equal(t, 1, invoker.callCount())
	require.Equal(t, "fintech", snap.Query)
	require.Equal(t, "finance", snap.Category)

	call := invoker.lastCall()
	require.Equal(t, NormalizeQuery("fintech"), call.query)
	require.Equal(t, "finance", call.category.UnwrapOr(""))
	require.GreaterOrEqual(t,
		call.at.Sub(lastChange), 150*time.Millisecond,
	)
}

// TestControllerEmptyQueryFastPath verifies that clearing the query skips
// the debounce wait entirely.
func TestControllerEmptyQueryFastPath(t *testing.T) {
	invoker := &fakeInvoker{}
	ctrl, updates := newTestController(t, invoker, nil, 2*time.Second)

	start := time.Now()
	ctrl.SetQuery("", CategoryAll)

	awaitUpdate(t, updates)

	require.Less(t, time.Since(start), 1*time.Second)
	require.Equal(t, 1, invoker.callCount())

	// The empty query maps to the canned default query, with no
	// category filter.
	call := invoker.lastCall()
	require.Equal(t, DefaultQuery, call.query)
	require.True(t, call.category.IsNone())
}

// TestControllerFailurePreservesResults verifies that generic failures and
// rate limits both keep the last good result set, and that the two are
// distinguishable error kinds.
func TestControllerFailurePreservesResults(t *testing.T) {
	invoker := &fakeInvoker{}
	ctrl, updates := newTestController(t, invoker, nil, time.Millisecond)

	// First fetch succeeds.
	invoker.respond = func(string, fn.Option[string]) ([]Article, error) {
		return testArticles("a", "b"), nil
	}
	ctrl.SetQuery("fintech", CategoryAll)
	snap := awaitUpdate(t, updates)
	require.True(t, snap.Live)
	require.Len(t, snap.Articles, 2)

	// Generic failure: results preserved, no longer live.
	invoker.respond = func(string, fn.Option[string]) ([]Article, error) {
		return nil, fmt.Errorf("gateway returned status 500")
	}
	ctrl.SetQuery("agritech", CategoryAll)
	snap = awaitUpdate(t, updates)
	require.Error(t, snap.Err)
	require.False(t, errors.Is(snap.Err, ErrRateLimited))
	require.False(t, snap.Live)
	require.Len(t, snap.Articles, 2)

	// Rate limit: same preservation, distinguished error kind.
	invoker.respond = func(string, fn.Option[string]) ([]Article, error) {
		return nil, fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	}
	ctrl.SetQuery("healthtech", CategoryAll)
	snap = awaitUpdate(t, updates)
	require.ErrorIs(t, snap.Err, ErrRateLimited)
	require.False(t, snap.Live)
	require.Len(t, snap.Articles, 2)
}

// TestControllerSupersededFetchDiscarded verifies that a slow fetch that
// completes after newer input has settled does not overwrite state.
func TestControllerSupersededFetchDiscarded(t *testing.T) {
	release := make(chan struct{})
	invoker := &fakeInvoker{}
	invoker.respond = func(query string,
		_ fn.Option[string]) ([]Article, error) {

		if query == NormalizeQuery("slow") {
			<-release
			return testArticles("stale"), nil
		}

		return testArticles("fresh"), nil
	}

	ctrl, updates := newTestController(t, invoker, nil, time.Millisecond)

	ctrl.SetQuery("slow", CategoryAll)

	// Give the slow fetch time to get in flight, then supersede it.
	time.Sleep(50 * time.Millisecond)
	ctrl.SetQuery("fast", CategoryAll)

	snap := awaitUpdate(t, updates)
	require.Equal(t, "fresh", snap.Articles[0].ID)

	// Let the superseded fetch complete; its result must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)

	final := ctrl.Snapshot()
	require.Equal(t, "fast", final.Query)
	require.Equal(t, "fresh", final.Articles[0].ID)
}

// TestControllerCacheScenario walks the freshness scenario: miss then
// populate, hit within the window with zero invocations, miss again after
// expiry.
func TestControllerCacheScenario(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cache := NewCache(5 * time.Minute)
	cache.now = func() time.Time { return now }

	invoker := &fakeInvoker{}
	ctrl, updates := newTestController(t, invoker, cache, time.Millisecond)

	// First call misses and populates the cache.
	ctrl.SetQuery("fintech", "Toutes")
	snap := awaitUpdate(t, updates)
	require.True(t, snap.Live)
	require.Equal(t, 1, invoker.callCount())

	// Identical input four minutes later: served from cache, still live,
	// zero additional invocations.
	now = now.Add(4 * time.Minute)
	ctrl.SetQuery("fintech", "Toutes")
	snap = awaitUpdate(t, updates)
	require.True(t, snap.Live)
	require.Equal(t, 1, invoker.callCount())

	// After six minutes the entry is stale and the gateway is invoked
	// again.
	now = now.Add(2 * time.Minute)
	ctrl.SetQuery("fintech", "Toutes")
	awaitUpdate(t, updates)
	require.Equal(t, 2, invoker.callCount())
}

// TestControllerRefetchBypassesCache verifies that an explicit refresh
// invalidates the entry and fetches even within the freshness window.
func TestControllerRefetchBypassesCache(t *testing.T) {
	cache := NewCache(5 * time.Minute)
	invoker := &fakeInvoker{}
	ctrl, updates := newTestController(t, invoker, cache, time.Millisecond)

	ctrl.SetQuery("fintech", CategoryAll)
	awaitUpdate(t, updates)
	require.Equal(t, 1, invoker.callCount())

	ctrl.Refetch()
	awaitUpdate(t, updates)
	require.Equal(t, 2, invoker.callCount())
}
