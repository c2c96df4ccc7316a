package videos

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawaflix/backend/internal/logging"
)

type cacheEntry struct {
	result  SearchResult
	expires time.Time
}

// redisEntry carries its absolute expiry so an instance promoting it into L1
// never keeps it past the writer's deadline.
type redisEntry struct {
	Result    SearchResult `json:"result"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// CachingSearcher wraps a Searcher with a TTL cache: an in-process map backed
// by Redis when a client is configured. Cache faults are logged and otherwise
// ignored; only the wrapped Searcher can fail a call.
type CachingSearcher struct {
	base Searcher
	ttl  time.Duration
	rdb  *redis.Client
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingSearcher returns a Searcher that caches results for ttl. rdb may be nil.
func NewCachingSearcher(base Searcher, ttl time.Duration, rdb *redis.Client) *CachingSearcher {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachingSearcher{
		base:  base,
		ttl:   ttl,
		rdb:   rdb,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// WithNowFunc allows tests to override the time source.
func (c *CachingSearcher) WithNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Search returns a cached result when one is live, otherwise it delegates and
// stores successful results. Errors are never cached.
func (c *CachingSearcher) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	if c == nil || c.base == nil {
		return SearchResult{}, ErrProviderUnavailable
	}

	key := params.Key()
	if result, ok := c.get(ctx, key); ok {
		return result, nil
	}

	result, err := c.base.Search(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}

	c.set(ctx, key, result)
	return result, nil
}

func (c *CachingSearcher) get(ctx context.Context, key string) (SearchResult, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	now := c.now()
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.result, true
	}

	if c.rdb == nil {
		return SearchResult{}, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("search cache read failed", "error", err)
		}
		return SearchResult{}, false
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil || stored.ExpiresAt.IsZero() {
		logging.FromContext(ctx).Warn("search cache entry corrupt", "key", key, "error", err)
		return SearchResult{}, false
	}
	if !now.Before(stored.ExpiresAt) {
		return SearchResult{}, false
	}

	expires := stored.ExpiresAt
	if limit := now.Add(c.ttl); limit.Before(expires) {
		expires = limit
	}

	c.mu.Lock()
	c.items[key] = cacheEntry{result: stored.Result, expires: expires}
	c.mu.Unlock()
	return stored.Result, true
}

func (c *CachingSearcher) set(ctx context.Context, key string, result SearchResult) {
	c.mu.Lock()
	now := c.now()
	for k, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, k)
		}
	}
	expires := now.Add(c.ttl)
	c.items[key] = cacheEntry{result: result, expires: expires}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(redisEntry{Result: result, ExpiresAt: expires})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("search cache write failed", "error", err)
	}
}
