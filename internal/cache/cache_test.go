package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasemsan-k/thai-search-core/pkg/config"
)

func newTestCache(t *testing.T, capacity int, ttl time.Duration) *Cache[string] {
	t.Helper()
	return New[string](config.CacheConfig{Capacity: capacity, TTL: ttl}, nil, nil)
}

func TestCacheGetPut(t *testing.T) {
	c := newTestCache(t, 16, time.Minute)
	ctx := context.Background()
	key := Key{Text: "สาหร่ายวากาเมะ", ChainID: "maxmatch>cluster", Generation: 1}

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Put(ctx, key, "tokens-v1")
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "tokens-v1", got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheKeyFieldBoundaries(t *testing.T) {
	// Text and domain are caller supplied; shifting bytes between fields
	// must never produce the same storage key.
	c := newTestCache(t, 16, time.Minute)
	ctx := context.Background()
	k1 := Key{Text: "a|maxmatch>cluster|b", ChainID: "maxmatch>cluster", Domain: "c"}
	k2 := Key{Text: "a", ChainID: "maxmatch>cluster", Domain: "b|maxmatch>cluster|c"}
	require.NotEqual(t, c.hashKey(k1), c.hashKey(k2))

	c.Put(ctx, k1, "result-for-k1")
	_, ok := c.Get(ctx, k2)
	assert.False(t, ok)
}

func TestCacheKeyVersionSaltsKeys(t *testing.T) {
	key := Key{Text: "สาหร่าย", ChainID: "maxmatch>cluster", Generation: 1}

	v1 := New[string](config.CacheConfig{Capacity: 8, TTL: time.Minute, KeyVersion: "1"}, nil, nil)
	v2 := New[string](config.CacheConfig{Capacity: 8, TTL: time.Minute, KeyVersion: "2"}, nil, nil)
	same := New[string](config.CacheConfig{Capacity: 8, TTL: time.Minute, KeyVersion: "1"}, nil, nil)

	assert.NotEqual(t, v1.hashKey(key), v2.hashKey(key))
	assert.Equal(t, v1.hashKey(key), same.hashKey(key))
}

func TestCacheKeyIsolation(t *testing.T) {
	c := newTestCache(t, 16, time.Minute)
	ctx := context.Background()
	base := Key{Text: "ทดสอบ", ChainID: "maxmatch>cluster", Generation: 1}
	c.Put(ctx, base, "base")

	t.Run("different generation misses", func(t *testing.T) {
		k := base
		k.Generation = 2
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	})

	t.Run("different domain misses", func(t *testing.T) {
		k := base
		k.Domain = "food"
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	})

	t.Run("different chain misses", func(t *testing.T) {
		k := base
		k.ChainID = "cluster"
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	})

	t.Run("different override misses", func(t *testing.T) {
		k := base
		k.Override = "cluster"
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	})

	t.Run("identical key hits", func(t *testing.T) {
		got, ok := c.Get(ctx, base)
		require.True(t, ok)
		assert.Equal(t, "base", got)
	})
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, 16, 30*time.Millisecond)
	ctx := context.Background()
	key := Key{Text: "ทดสอบ", Generation: 1}

	c.Put(ctx, key, "value")
	_, ok := c.Get(ctx, key)
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCacheCapacityBound(t *testing.T) {
	c := newTestCache(t, 2, time.Minute)
	ctx := context.Background()

	for _, text := range []string{"หนึ่ง", "สอง", "สาม"} {
		c.Put(ctx, Key{Text: text, Generation: 1}, text)
	}
	assert.LessOrEqual(t, c.Len(), 2)

	// The oldest entry was evicted.
	_, ok := c.Get(ctx, Key{Text: "หนึ่ง", Generation: 1})
	assert.False(t, ok)
	_, ok = c.Get(ctx, Key{Text: "สาม", Generation: 1})
	assert.True(t, ok)
}

func TestCacheOverwrite(t *testing.T) {
	c := newTestCache(t, 16, time.Minute)
	ctx := context.Background()
	key := Key{Text: "ทดสอบ", Generation: 1}

	c.Put(ctx, key, "old")
	c.Put(ctx, key, "new")
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestGetOrCompute(t *testing.T) {
	t.Run("computes on miss, hits afterwards", func(t *testing.T) {
		c := newTestCache(t, 16, time.Minute)
		ctx := context.Background()
		key := Key{Text: "ทดสอบ", Generation: 1}
		var calls atomic.Int32

		v, hit, err := c.GetOrCompute(ctx, key, func() (string, error) {
			calls.Add(1)
			return "computed", nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "computed", v)

		v, hit, err = c.GetOrCompute(ctx, key, func() (string, error) {
			calls.Add(1)
			return "recomputed", nil
		})
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, "computed", v)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("error is not cached", func(t *testing.T) {
		c := newTestCache(t, 16, time.Minute)
		ctx := context.Background()
		key := Key{Text: "ทดสอบ", Generation: 1}

		_, _, err := c.GetOrCompute(ctx, key, func() (string, error) {
			return "", errors.New("boom")
		})
		require.Error(t, err)

		v, hit, err := c.GetOrCompute(ctx, key, func() (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "ok", v)
	})

	t.Run("concurrent misses collapse", func(t *testing.T) {
		c := newTestCache(t, 16, time.Minute)
		ctx := context.Background()
		key := Key{Text: "ทดสอบ", Generation: 1}
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, _, err := c.GetOrCompute(ctx, key, func() (string, error) {
					calls.Add(1)
					<-release
					return "shared", nil
				})
				assert.NoError(t, err)
				assert.Equal(t, "shared", v)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		assert.LessOrEqual(t, calls.Load(), int32(2))
	})
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t, 16, time.Minute)
	ctx := context.Background()

	c.Put(ctx, Key{Text: "หนึ่ง", Generation: 1}, "one")
	c.Put(ctx, Key{Text: "สอง", Generation: 1}, "two")
	require.Equal(t, 2, c.Len())

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ctx, Key{Text: "หนึ่ง", Generation: 1})
	assert.False(t, ok)
}
