package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testArticles returns a small distinguishable result set.
func testArticles(ids ...string) []Article {
	articles := make([]Article, len(ids))
	for i, id := range ids {
		articles[i] = Article{ID: id, Title: "article " + id}
	}
	return articles
}

// TestCacheFreshnessWindow verifies that entries are returned within the
// TTL and reported absent afterwards, independently of other keys.
func TestCacheFreshnessWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(5 * time.Minute)
	cache.now = func() time.Time { return now }

	key := CacheKey("fintech", CategoryAll)
	cache.Put(key, testArticles("a", "b"))

	// Populate unrelated keys; they must not affect the lookup.
	cache.Put(CacheKey("agritech", CategoryAll), testArticles("x"))
	cache.Put(CacheKey("fintech", "finance"), testArticles("y"))

	// Fresh within the window.
	now = now.Add(4 * time.Minute)
	got, ok := cache.Get(key)
	require.True(t, ok)
	require.Len(t, got, 2)

	// Exactly at the TTL boundary the entry is stale.
	now = now.Add(1 * time.Minute)
	_, ok = cache.Get(key)
	require.False(t, ok)

	// Stale entries are not deleted, only ignored.
	require.Equal(t, 3, cache.Len())

	// A new Put overwrites the stale entry and is fresh again.
	cache.Put(key, testArticles("c"))
	got, ok = cache.Get(key)
	require.True(t, ok)
	require.Equal(t, "c", got[0].ID)
}

// TestCacheInvalidate verifies that invalidation wins over freshness.
func TestCacheInvalidate(t *testing.T) {
	cache := NewCache(5 * time.Minute)

	key := CacheKey("fintech", CategoryAll)
	cache.Put(key, testArticles("a"))

	_, ok := cache.Get(key)
	require.True(t, ok)

	cache.Invalidate(key)

	_, ok = cache.Get(key)
	require.False(t, ok)
	require.Equal(t, 0, cache.Len())
}

// TestCacheKeyNormalization verifies that keys are stable across casing
// and surrounding whitespace of the query text.
func TestCacheKeyNormalization(t *testing.T) {
	require.Equal(t,
		CacheKey("Fintech", "finance"),
		CacheKey("  fintech ", "finance"),
	)
	require.NotEqual(t,
		CacheKey("fintech", "finance"),
		CacheKey("fintech", CategoryAll),
	)
}
