package news

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultDebounce is how long the controller waits for input
	// quiescence before firing a fetch.
	DefaultDebounce = 500 * time.Millisecond

	// CategoryAll is the category value meaning "no category filter".
	// The portal UI labels it "Toutes".
	CategoryAll = "toutes"
)

// ControllerConfig holds configuration for the debounced query controller.
type ControllerConfig struct {
	// Invoker performs the actual news fetches.
	Invoker Invoker

	// Cache memoizes results per (query, category) key. A fresh cache
	// with DefaultCacheTTL is created when nil.
	Cache *Cache

	// Debounce is the input quiescence window. Defaults to
	// DefaultDebounce when zero.
	Debounce time.Duration

	// OnUpdate, when set, receives a state snapshot every time a fetch
	// settles (success, failure, or cache hit). Called outside the
	// controller's lock.
	OnUpdate func(Snapshot)

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Controller converts rapidly changing search input into a bounded rate of
// gateway invocations. Each input change (re)schedules a fetch after the
// debounce window; an empty query fires immediately since it is the
// landing state of the view.
//
// Every scheduled fetch captures a generation number at schedule time. A
// fetch that completes after being superseded by newer input discards its
// result instead of overwriting state, so overlapping fetches can never
// interleave into an inconsistent view.
type Controller struct {
	cfg   ControllerConfig
	cache *Cache
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	timer    *time.Timer
	gen      uint64
	query    string
	category string
	snap     Snapshot
}

// NewController creates a controller using the given configuration.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		cfg:    cfg,
		cache:  cache,
		log:    cfg.Logger.With("component", "news-controller"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetQuery records a new input pair and (re)schedules the fetch. Any
// previously scheduled, not-yet-fired fetch is cancelled; an in-flight
// fetch is logically superseded and will discard its result on completion.
func (c *Controller) SetQuery(query, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.query = query
	c.category = category
	c.gen++
	gen := c.gen

	if c.timer != nil {
		c.timer.Stop()
	}

	// Empty input is the default landing state and should resolve fast.
	delay := c.cfg.Debounce
	if query == "" {
		delay = 0
	}

	c.timer = time.AfterFunc(delay, func() {
		c.fetch(gen, query, category)
	})
}

// Refetch bypasses the freshness window for the current input: the cache
// entry is invalidated first, then a fetch runs unconditionally.
func (c *Controller) Refetch() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen := c.gen
	query := c.query
	category := c.category
	c.mu.Unlock()

	c.cache.Invalidate(CacheKey(query, category))

	go c.fetch(gen, query, category)
}

// Snapshot returns a copy of the latest settled state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// Close stops the pending timer and cancels any in-flight invocation.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.cancel()
}

// fetch resolves one scheduled fetch: cache first, gateway on miss. The
// generation captured at schedule time gates the final commit.
func (c *Controller) fetch(gen uint64, query, category string) {
	// Cheap early exit when already superseded before doing any work.
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	key := CacheKey(query, category)

	// A hit within the freshness window short-circuits the gateway
	// entirely. Cached answers originated from a live fetch, so the view
	// still counts as live.
	if articles, ok := c.cache.Get(key); ok {
		c.commit(gen, query, category, articles, nil)
		return
	}

	articles, err := c.cfg.Invoker.FetchNews(
		c.ctx, NormalizeQuery(query), categoryFilter(category),
	)
	if err != nil {
		c.log.Warn("News fetch failed",
			"query", query, "category", category, "err", err)
		c.commit(gen, query, category, nil, err)
		return
	}

	c.cache.Put(key, articles)
	c.commit(gen, query, category, articles, nil)
}

// commit applies a settled fetch to controller state, unless the fetch was
// superseded while in flight.
func (c *Controller) commit(gen uint64, query, category string,
	articles []Article, err error) {

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()

		c.log.Debug("Discarding superseded fetch result",
			"query", query, "gen", gen)
		return
	}

	c.snap.Query = query
	c.snap.Category = category
	c.snap.Err = err

	if err != nil {
		// Keep the last good result set on screen; only the liveness
		// flag and error change.
		c.snap.Live = false
	} else {
		c.snap.Articles = articles
		c.snap.Live = true
		c.snap.LastUpdated = time.Now()
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(snap)
	}
}

// snapshotLocked copies the current state. Callers must hold c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	snap := c.snap
	snap.Articles = append([]Article(nil), c.snap.Articles...)

	return snap
}

// categoryFilter maps the UI category value onto the gateway's optional
// filter: empty or "all" ("Toutes") means no filter.
func categoryFilter(category string) fn.Option[string] {
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return fn.None[string]()
	}

	return fn.Some(category)
}
