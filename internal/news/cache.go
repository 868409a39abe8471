package news

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached query result remains fresh.
const DefaultCacheTTL = 5 * time.Minute

// cacheEntry is a stored result set with the time it was fetched.
type cacheEntry struct {
	articles  []Article
	fetchedAt time.Time
}

// Cache is a keyed, time-boxed memoization of news query results. Entries
// expire after the TTL but are not proactively evicted: an expired entry is
// simply treated as absent until the next Put overwrites it. Removal only
// happens through explicit Invalidate calls (a user-triggered refresh).
//
// The key space is one entry per distinct (query, category) pair seen in a
// session, so no capacity bound is applied.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// NewCache creates a Cache with the given TTL. A non-positive TTL falls
// back to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// CacheKey builds the deterministic cache key for a query/category pair.
func CacheKey(query, category string) string {
	return strings.TrimSpace(strings.ToLower(query)) + "|" + category
}

// Get returns the cached articles for the key if the entry exists and is
// still within the freshness window.
func (c *Cache) Get(key string) ([]Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		// Stale. Left in place to be overwritten by the next Put.
		return nil, false
	}

	return entry.articles, true
}

// Put stores or overwrites the entry for the key, stamped with the current
// time.
func (c *Cache) Put(key string, articles []Article) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		articles:  articles,
		fetchedAt: c.now(),
	}
}

// Invalidate removes the entry for the key unconditionally, forcing the
// next lookup to miss even within the freshness window.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
