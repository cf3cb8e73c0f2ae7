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
)

func newTestCache() *Cache {
	// No janitor: expiry behavior is exercised lazily.
	return New(&Config{DefaultTTL: time.Minute})
}

func TestCache_SetThenGet(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("k", "v", time.Minute)

	value, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("k", "v", 50*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	value, ok := c.Get("k")
	assert.False(t, ok)
	assert.Nil(t, value)

	stats := c.Stats()
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCache_NonPositiveTTLStoresExpired(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("k", "v", 0)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k2", "v", -time.Second)
	_, ok = c.Get("k2")
	assert.False(t, ok)
}

func TestCache_SetReplacesWholesale(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("k", "old", time.Minute)
	_, _ = c.Get("k")
	c.Set("k", "new", time.Minute)

	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", value)

	// The replacement reset the per-entry hit count; only the post-replace
	// hit remains.
	top := c.TopEntries(1)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].HitCount)
}

func TestCache_HitRateAccounting(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	assert.Equal(t, 0.0, c.Stats().HitRate)

	c.Get("absent")
	c.Set("k", 1, time.Minute)
	c.Get("k")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestCache_FetchWithCache(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	calls := 0
	retrieve := func(ctx context.Context) (interface{}, error) {
		calls++
		return "fetched", nil
	}

	value, err := c.FetchWithCache(context.Background(), "k", time.Minute, retrieve)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)
	assert.Equal(t, 1, calls)

	// Second call is served from the cache.
	value, err = c.FetchWithCache(context.Background(), "k", time.Minute, retrieve)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)
	assert.Equal(t, 1, calls)
}

func TestCache_FetchWithCacheFailureNotCached(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	boom := errors.New("provider unavailable")
	calls := 0
	failing := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, boom
	}

	_, err := c.FetchWithCache(context.Background(), "k", time.Minute, failing)
	assert.ErrorIs(t, err, boom)

	// The failure was not cached: the next call retrieves again.
	_, err = c.FetchWithCache(context.Background(), "k", time.Minute, failing)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestCache_FetchWithCacheCoalescesConcurrentMisses(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	var calls int64
	release := make(chan struct{})
	retrieve := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "shared", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]interface{}, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.FetchWithCache(context.Background(), "k", time.Minute, retrieve)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give the workers time to pile onto the in-flight retrieval.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&calls), int64(2))
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestCache_SweepExpired(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("live", 1, time.Minute)
	c.Set("dead1", 1, -time.Second)
	c.Set("dead2", 1, -time.Second)

	removed := c.SweepExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Stats().TotalEntries)
	assert.Equal(t, 0, c.SweepExpired())
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("k", 1, time.Minute)
	c.Get("k")
	c.Get("absent")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestCache_TopEntries(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("x", 1, time.Minute)
	c.Set("y", 1, time.Minute)
	c.Set("z", 1, time.Minute)
	for i := 0; i < 3; i++ {
		c.Get("x")
	}
	c.Get("y")
	for i := 0; i < 5; i++ {
		c.Get("z")
	}

	top := c.TopEntries(10)
	require.Len(t, top, 3)
	assert.Equal(t, "z", top[0].Key)
	assert.Equal(t, "x", top[1].Key)
	assert.Equal(t, "y", top[2].Key)
	assert.Equal(t, int64(5), top[0].HitCount)
	assert.GreaterOrEqual(t, top[0].Age, time.Duration(0))
}

func TestCache_TopEntriesTieBreakAndLimit(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("b", 1, time.Minute)
	c.Set("c", 1, time.Minute)
	c.Get("a")
	c.Get("b")
	c.Get("c")

	top := c.TopEntries(2)
	require.Len(t, top, 2)
	// Equal hit counts fall back to insertion order.
	assert.Equal(t, "a", top[0].Key)
	assert.Equal(t, "b", top[1].Key)
}

func TestCache_StatsCreatedAtBounds(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	before := time.Now()
	c.Set("first", 1, time.Minute)
	c.Set("second", 1, time.Minute)
	after := time.Now()

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.False(t, stats.OldestCreatedAt.Before(before))
	assert.False(t, stats.NewestCreatedAt.After(after))
	assert.False(t, stats.NewestCreatedAt.Before(stats.OldestCreatedAt))
	assert.Greater(t, stats.MemoryBytes, uint64(0))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + j%5))
				if j%2 == 0 {
					c.Set(key, j, time.Minute)
				} else {
					c.Get(key)
				}
			}
		}(i)
	}
	wg.Wait()
	// Passes if no race is detected.
}
