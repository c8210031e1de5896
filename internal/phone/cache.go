package phone

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long an early-observed caller number stays usable.
const DefaultTTL = 24 * time.Hour

// Cache maps correlation ids to recently observed caller numbers. Entries are
// time-bounded; a stale entry is never returned even if still present.
type Cache interface {
	Get(correlationID string) (string, bool)
	Put(correlationID, number string)
	Sweep()
}

type cacheEntry struct {
	number   string
	cachedAt time.Time
}

// MemoryCache is a process-local synchronized Cache. Eviction is lazy on Get
// plus an opportunistic full sweep on every Put.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl falls back to
// DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithNow sets the clock, for tests.
func (c *MemoryCache) WithNow(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(correlationID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[correlationID]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.cachedAt) >= c.ttl {
		delete(c.entries, correlationID)
		return "", false
	}
	return entry.number, true
}

func (c *MemoryCache) Put(correlationID, number string) {
	if correlationID == "" || number == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[correlationID] = cacheEntry{number: number, cachedAt: c.now()}
	c.sweepLocked()
}

// Sweep removes all expired entries.
func (c *MemoryCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
}

func (c *MemoryCache) sweepLocked() {
	cutoff := c.now().Add(-c.ttl)
	for id, entry := range c.entries {
		if !entry.cachedAt.After(cutoff) {
			delete(c.entries, id)
		}
	}
}

// Len reports the number of physically present entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
