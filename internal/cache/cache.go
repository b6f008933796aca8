// Package cache provides the bounded result cache for tokenization calls.
// Entries live in an in-process LRU with an absolute TTL; an optional Redis
// tier sits behind it. Keys include the dictionary generation, so a reload
// turns every stale entry into a miss without any invalidation sweep.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/kasemsan-k/thai-search-core/pkg/config"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
	pkgredis "github.com/kasemsan-k/thai-search-core/pkg/redis"
)

const redisKeyPrefix = "tok:"

// Key identifies one tokenization result. Two calls share a cache entry only
// when every field matches, including the dictionary generation.
type Key struct {
	Text       string
	ChainID    string
	Domain     string
	Override   string
	Generation uint64
}

// hashKey returns the storage key. Every field is length-prefixed before
// digesting so caller-supplied text and domain can never alias each other,
// and the configured key version salts the digest as a manual invalidation
// knob.
func (c *Cache[V]) hashKey(k Key) string {
	d := sha256.New()
	for _, f := range []string{c.keyVersion, k.Text, k.ChainID, k.Domain, k.Override} {
		fmt.Fprintf(d, "%d:", len(f))
		d.Write([]byte(f))
	}
	fmt.Fprintf(d, "g%d", k.Generation)
	return fmt.Sprintf("%x", d.Sum(nil)[:16])
}

// Cache is a bounded LRU+TTL cache over values of type V. Concurrent get
// and put are safe; a write race on the same key resolves last-write-wins,
// which is acceptable because results are deterministic per key.
type Cache[V any] struct {
	lru        *expirable.LRU[string, V]
	keyVersion string
	redis      *pkgredis.Client
	redisTTL   time.Duration
	group      singleflight.Group
	metrics    *metrics.Metrics
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

// New creates a Cache sized and aged per cfg. redisClient may be nil to run
// without the second tier.
func New[V any](cfg config.CacheConfig, redisClient *pkgredis.Client, m *metrics.Metrics) *Cache[V] {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 50000
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	c := &Cache[V]{
		lru:        expirable.NewLRU[string, V](capacity, nil, ttl),
		keyVersion: cfg.KeyVersion,
		redisTTL:   cfg.RedisTTL,
		metrics:    m,
		logger:     slog.Default().With("component", "result-cache"),
	}
	if cfg.RedisTier && redisClient != nil {
		c.redis = redisClient
	}
	return c
}

// Get returns the cached value for key, trying the in-process tier first and
// Redis second. A Redis hit is promoted into the LRU.
func (c *Cache[V]) Get(ctx context.Context, key Key) (V, bool) {
	var zero V
	h := c.hashKey(key)
	if v, ok := c.lru.Get(h); ok {
		c.hit()
		return v, true
	}
	if c.redis != nil {
		data, err := c.redis.Get(ctx, redisKeyPrefix+h)
		if err == nil {
			var v V
			if err := json.Unmarshal([]byte(data), &v); err == nil {
				c.lru.Add(h, v)
				c.hit()
				return v, true
			}
			c.logger.Error("redis tier unmarshal failed", "key", h, "error", err)
		} else if !pkgredis.IsNilError(err) {
			c.logger.Error("redis tier get failed", "key", h, "error", err)
		}
	}
	c.miss()
	return zero, false
}

// Put stores the value for key in both tiers, overwriting an existing entry
// and refreshing its recency.
func (c *Cache[V]) Put(ctx context.Context, key Key, value V) {
	h := c.hashKey(key)
	c.lru.Add(h, value)
	if c.redis != nil {
		data, err := json.Marshal(value)
		if err != nil {
			c.logger.Error("redis tier marshal failed", "key", h, "error", err)
			return
		}
		if err := c.redis.Set(ctx, redisKeyPrefix+h, data, c.redisTTL); err != nil {
			c.logger.Error("redis tier set failed", "key", h, "error", err)
		}
	}
}

// GetOrCompute returns the cached value or computes and stores it. Identical
// concurrent misses are collapsed into one computation.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key Key, computeFn func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	h := c.hashKey(key)
	val, err, _ := c.group.Do(h, func() (interface{}, error) {
		// Re-check without touching the stats: a sibling call may have
		// populated the entry while this one waited.
		if v, ok := c.lru.Get(h); ok {
			return v, nil
		}
		v, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Put(ctx, key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return val.(V), false, nil
}

// Invalidate drops the in-process tier entirely and flushes the Redis tier.
func (c *Cache[V]) Invalidate(ctx context.Context) error {
	c.lru.Purge()
	if c.redis != nil {
		deleted, err := c.redis.FlushByPattern(ctx, redisKeyPrefix+"*")
		if err != nil {
			return fmt.Errorf("flushing redis tier: %w", err)
		}
		c.logger.Info("redis tier flushed", "keys_deleted", deleted)
	}
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of live entries in the in-process tier.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[V]) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *Cache[V]) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
