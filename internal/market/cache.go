package market

import (
	"sync"
	"time"
)

// statsCache keeps market stats per category/vendor key until they expire.
type statsCache struct {
	mu         sync.Mutex
	entries    map[string]cachedStats
	ttl        time.Duration
	timeSource TimeSource
}

type cachedStats struct {
	stats     Stats
	expiresAt time.Time
}

func newStatsCache(ttl time.Duration, timeSource TimeSource) *statsCache {
	return &statsCache{
		entries:    make(map[string]cachedStats),
		ttl:        ttl,
		timeSource: timeSource,
	}
}

func (c *statsCache) get(key string) (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Stats{}, false
	}
	if !entry.expiresAt.After(c.timeSource.Now()) {
		delete(c.entries, key)
		return Stats{}, false
	}
	return entry.stats, true
}

func (c *statsCache) set(key string, stats Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedStats{
		stats:     stats,
		expiresAt: c.timeSource.Now().Add(c.ttl),
	}
}

// sweep drops every expired entry.
func (c *statsCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.timeSource.Now()
	for key, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, key)
		}
	}
}
