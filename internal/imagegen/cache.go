package imagegen

import (
	"sync"
	"time"

	"github.com/lox/floatchat/internal/metrics"
	"github.com/lox/floatchat/internal/profile"
)

// ChartKey identifies one rendered chart.
type ChartKey struct {
	FloatID  string
	Date     string
	MaxDepth int
	Metric   profile.Metric
	Thumb    bool
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// ChartCache keeps rendered charts in memory for a short period. Profiles are
// deterministic, so the TTL only bounds memory, not staleness.
type ChartCache struct {
	mu         sync.RWMutex
	entries    map[ChartKey]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewChartCache creates a cache holding at most maxEntries charts for ttl each.
func NewChartCache(ttl time.Duration, maxEntries int) *ChartCache {
	return &ChartCache{
		entries:    make(map[ChartKey]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached chart if still valid.
func (c *ChartCache) Get(key ChartKey) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		metrics.ChartCacheResults.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.ChartCacheResults.WithLabelValues("hit").Inc()
	return e.data, true
}

// Set stores a chart, evicting expired entries and then the entry closest to
// expiry when the cache is full.
func (c *ChartCache) Set(key ChartKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
}

// Len returns the number of stored entries, expired or not.
func (c *ChartCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ChartCache) evict(now time.Time) {
	var (
		oldest    ChartKey
		oldestExp time.Time
		found     bool
	)
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if !found || e.expiresAt.Before(oldestExp) {
			oldest, oldestExp, found = k, e.expiresAt, true
		}
	}
	if found && len(c.entries) >= c.maxEntries {
		delete(c.entries, oldest)
	}
}
