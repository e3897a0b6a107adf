package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used when a cache is constructed without an explicit TTL.
const DefaultTTL = 30 * time.Minute

// Cache is a process-local TTL cache for name lookup results and LLM
// verdicts. It is read-through only: callers consult it before running
// the cascade and seed it afterwards. One instance is constructed per
// process and threaded through the resolvers; there is no global.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	hits    int64
	misses  int64
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats exposes cache observability counters.
type Stats struct {
	Keys   int   `json:"keys"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// New creates a cache with the given TTL. Non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the cache TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Flush drops every entry, forcing a cold start. Hit/miss counters are
// preserved so a flush is visible in the stats.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Keys:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
