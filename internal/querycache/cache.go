package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"lingocast/internal/logging"
)

// DefaultStaleTime is how long a successful result is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// Persister is the optional second tier that survives process restarts.
type Persister interface {
	LoadEntry(ctx context.Context, key string) ([]byte, time.Time, bool, error)
	SaveEntry(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error
	DeleteEntries(ctx context.Context, prefix string) error
}

// Options configures a Cache.
type Options struct {
	StaleTime time.Duration
	// Retries is the number of extra attempts after a failed fetch. Zero
	// means a failed fetch is reported immediately.
	Retries   int
	Persister Persister
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Cache de-duplicates and caches read queries by key. Entries live in memory
// (L1) and, when a Persister is configured, in the local state database (L2).
type Cache struct {
	staleTime time.Duration
	retries   int
	l2        Persister
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	l1    map[string]entry
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	data      []byte
	fetchedAt time.Time
}

// New constructs a cache.
func New(opts Options) *Cache {
	c := &Cache{
		staleTime: opts.StaleTime,
		retries:   opts.Retries,
		l2:        opts.Persister,
		logger:    logging.NewComponentLogger(opts.Logger, "querycache"),
		now:       opts.Clock,
		l1:        make(map[string]entry),
	}
	if c.staleTime < 0 {
		c.staleTime = 0
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Key joins key segments. Invalidation matches whole segments.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// Query returns the cached value for key while it is fresh. Otherwise it
// calls fetch once per key even when many callers ask concurrently.
func Query[T any](ctx context.Context, c *Cache, key []string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.query(ctx, Key(key...), func(ctx context.Context) ([]byte, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("querycache: encode %s: %w", Key(key...), err)
		}
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("querycache: decode %s: %w", Key(key...), err)
	}
	return out, nil
}

func (c *Cache) query(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return data, nil
	}
	c.misses.Add(1)

	value, err, shared := c.group.Do(key, func() (any, error) {
		var lastErr error
		for attempt := 0; attempt <= c.retries; attempt++ {
			data, err := fetch(ctx)
			if err == nil {
				c.store(ctx, key, data)
				return data, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		return nil, lastErr
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("query shared in-flight fetch", logging.String("key", key))
	}
	return value.([]byte), nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	now := c.now()
	c.mu.Lock()
	cached, ok := c.l1[key]
	c.mu.Unlock()
	if ok && c.fresh(cached.fetchedAt, now) {
		return cached.data, true
	}
	if c.l2 == nil {
		return nil, false
	}
	data, fetchedAt, ok, err := c.l2.LoadEntry(ctx, key)
	if err != nil {
		c.logger.Debug("persisted cache lookup failed", logging.String("key", key), logging.Error(err))
		return nil, false
	}
	if !ok || !c.fresh(fetchedAt, now) {
		return nil, false
	}
	c.mu.Lock()
	c.l1[key] = entry{data: data, fetchedAt: fetchedAt}
	c.mu.Unlock()
	return data, true
}

func (c *Cache) fresh(fetchedAt, now time.Time) bool {
	return c.staleTime > 0 && now.Sub(fetchedAt) < c.staleTime
}

func (c *Cache) store(ctx context.Context, key string, data []byte) {
	fetchedAt := c.now()
	c.mu.Lock()
	c.l1[key] = entry{data: data, fetchedAt: fetchedAt}
	c.mu.Unlock()
	if c.l2 == nil {
		return
	}
	if err := c.l2.SaveEntry(ctx, key, data, fetchedAt); err != nil {
		c.logger.Debug("persist cache entry failed", logging.String("key", key), logging.Error(err))
	}
}

// Invalidate drops every entry whose key starts with the given segments.
func (c *Cache) Invalidate(ctx context.Context, prefix ...string) error {
	p := Key(prefix...)
	if p == "" {
		return c.Clear(ctx)
	}
	c.mu.Lock()
	for key := range c.l1 {
		if key == p || strings.HasPrefix(key, p+"/") {
			delete(c.l1, key)
		}
	}
	c.mu.Unlock()
	if c.l2 != nil {
		return c.l2.DeleteEntries(ctx, p)
	}
	return nil
}

// Clear drops every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.l1 = make(map[string]entry)
	c.mu.Unlock()
	if c.l2 != nil {
		return c.l2.DeleteEntries(ctx, "")
	}
	return nil
}

// Stats reports lookup counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
