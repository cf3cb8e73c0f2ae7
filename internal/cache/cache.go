// Package cache provides the TTL response cache that sits between the MCP
// tool handlers and the metrics provider. It is pure infrastructure: it knows
// nothing about metric semantics and never raises errors of its own, only
// relaying retrieval failures.
package cache

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config defines cache behavior.
type Config struct {
	// DefaultTTL applies when FetchWithCache is called with a zero TTL.
	DefaultTTL time.Duration
	// SweepInterval is how often the background janitor reclaims expired
	// entries. Zero disables the janitor; lazy expiry on Get is sufficient
	// for correctness either way.
	SweepInterval time.Duration
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() *Config {
	return &Config{
		DefaultTTL:    time.Hour,
		SweepInterval: 5 * time.Minute,
	}
}

// Entry is one cached resource.
type Entry struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	HitCount  int64       `json:"hit_count"`

	seq uint64 // insertion order, tie-break for TopEntries
}

// Stats is a read-only snapshot of cache activity.
type Stats struct {
	Hits            uint64    `json:"hits"`
	Misses          uint64    `json:"misses"`
	HitRate         float64   `json:"hit_rate"`
	TotalEntries    int       `json:"total_entries"`
	OldestCreatedAt time.Time `json:"oldest_created_at"`
	NewestCreatedAt time.Time `json:"newest_created_at"`
	// MemoryBytes is the process heap allocation, best-effort and
	// informational only.
	MemoryBytes uint64 `json:"memory_bytes"`
}

// TopEntry describes one row of the hit-count leaderboard.
type TopEntry struct {
	Key      string        `json:"key"`
	HitCount int64         `json:"hit_count"`
	Age      time.Duration `json:"age"`
}

// RetrieveFunc fetches the value for a key on a cache miss.
type RetrieveFunc func(ctx context.Context) (interface{}, error)

// Cache is a thread-safe in-process TTL store with hit/miss accounting.
// Counters live on the instance so independent caches (one per test, one per
// process) never share state.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	seq     uint64
	hits    uint64
	misses  uint64

	group   singleflight.Group
	config  *Config
	janitor *janitor
	closed  bool
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

// New creates a cache and starts its janitor when a sweep interval is set.
func New(config *Config) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Cache{
		entries: make(map[string]*Entry),
		config:  config,
	}
	if config.SweepInterval > 0 {
		c.janitor = &janitor{interval: config.SweepInterval, stop: make(chan struct{})}
		go c.runJanitor()
	}
	return c
}

// Get returns the live value for key. An expired entry found during lookup is
// deleted and counted as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	entry.HitCount++
	c.hits++
	return entry.Value, true
}

// Set inserts or replaces the entry for key. A replaced entry loses its hit
// count. A non-positive TTL stores the entry already expired; it stays
// unreadable until the next access or sweep removes it.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		seq:       c.seq,
	}
}

// FetchWithCache returns the cached value for key, or invokes retrieve and
// caches its result under the given TTL. Concurrent callers missing on the
// same key share a single retrieval. A retrieval failure propagates unchanged
// and caches nothing.
func (c *Cache) FetchWithCache(ctx context.Context, key string, ttl time.Duration, retrieve RetrieveFunc) (interface{}, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have populated the entry while this one was
		// queued behind the flight.
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := retrieve(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Stats returns a snapshot of the counters and live-entry bounds.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	now := time.Now()
	live := 0
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			continue
		}
		live++
		if stats.OldestCreatedAt.IsZero() || entry.CreatedAt.Before(stats.OldestCreatedAt) {
			stats.OldestCreatedAt = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestCreatedAt) {
			stats.NewestCreatedAt = entry.CreatedAt
		}
	}
	stats.TotalEntries = live

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.MemoryBytes = mem.Alloc

	return stats
}

// SweepExpired removes every expired entry and returns how many were removed.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
}

// TopEntries returns up to limit entries ordered by hit count descending,
// ties broken by insertion order. A non-positive limit means 10.
func (c *Cache) TopEntries(limit int) []TopEntry {
	if limit <= 0 {
		limit = 10
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entries := make([]*Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if !now.After(entry.ExpiresAt) {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].HitCount != entries[j].HitCount {
			return entries[i].HitCount > entries[j].HitCount
		}
		return entries[i].seq < entries[j].seq
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	top := make([]TopEntry, len(entries))
	for i, entry := range entries {
		top[i] = TopEntry{
			Key:      entry.Key,
			HitCount: entry.HitCount,
			Age:      now.Sub(entry.CreatedAt),
		}
	}
	return top
}

// Close stops the janitor. The cache remains usable afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.janitor != nil {
		close(c.janitor.stop)
	}
}

func (c *Cache) runJanitor() {
	ticker := time.NewTicker(c.janitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.SweepExpired()
		case <-c.janitor.stop:
			return
		}
	}
}
