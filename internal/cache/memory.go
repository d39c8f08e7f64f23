package cache

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/momentum/internal/contracts"
)

// DefaultTTL is the tier-1 entry lifetime
const DefaultTTL = 15 * time.Minute

type entry struct {
	score      contracts.MomentumScore
	insertedAt time.Time
}

// MemoryCache is the tier-1 in-process score cache
// ⭐ SSOT: tier-1 캐시는 이 구조체에서만
// Locks are held only around map operations.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

var _ contracts.ScoreCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache; ttl <= 0 uses DefaultTTL
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// valid reports now - insertedAt < ttl
func (c *MemoryCache) valid(e entry, now time.Time) bool {
	return now.Sub(e.insertedAt) < c.ttl
}

// Get returns a live entry; expired entries count as misses
func (c *MemoryCache) Get(ticker string) (contracts.MomentumScore, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[ticker]
	c.mu.RUnlock()

	if !ok || !c.valid(e, now) {
		c.misses.Add(1)
		return contracts.MomentumScore{}, false
	}

	c.hits.Add(1)
	s := e.score
	s.Source = contracts.TierMemory
	return s, true
}

// GetMany returns every live entry among tickers
func (c *MemoryCache) GetMany(tickers []string) map[string]contracts.MomentumScore {
	out := make(map[string]contracts.MomentumScore, len(tickers))
	for _, t := range tickers {
		if s, ok := c.Get(t); ok {
			out[t] = s
		}
	}
	return out
}

// Set stores a score, replacing any previous entry for the ticker
func (c *MemoryCache) Set(score contracts.MomentumScore) {
	e := entry{score: score, insertedAt: c.now()}

	c.mu.Lock()
	c.entries[score.Ticker] = e
	c.mu.Unlock()
}

// Size returns the number of stored entries, expired included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops everything
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.evictions.Add(uint64(n))
}

// Keys returns live tickers matching a glob pattern ("" or "*" = all), sorted
func (c *MemoryCache) Keys(pattern string) []string {
	now := c.now()
	pattern = strings.ToUpper(strings.TrimSpace(pattern))

	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.valid(e, now) {
			continue
		}
		if matches(pattern, k) {
			keys = append(keys, k)
		}
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Invalidate removes a ticker, or every ticker matching a glob pattern.
// Returns how many entries were removed.
func (c *MemoryCache) Invalidate(tickerOrPattern string) int {
	target := strings.ToUpper(strings.TrimSpace(tickerOrPattern))
	if target == "" {
		return 0
	}

	c.mu.Lock()
	removed := 0
	if !isPattern(target) {
		if _, ok := c.entries[target]; ok {
			delete(c.entries, target)
			removed = 1
		}
	} else {
		for k := range c.entries {
			if matches(target, k) {
				delete(c.entries, k)
				removed++
			}
		}
	}
	c.mu.Unlock()

	c.evictions.Add(uint64(removed))
	return removed
}

// Sweep purges expired entries and returns how many were removed
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if !c.valid(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	c.evictions.Add(uint64(removed))
	return removed
}

// Stats returns a snapshot of the cache counters
func (c *MemoryCache) Stats() contracts.CacheStats {
	now := c.now()

	c.mu.RLock()
	total := len(c.entries)
	expired := 0
	for _, e := range c.entries {
		if !c.valid(e, now) {
			expired++
		}
	}
	c.mu.RUnlock()

	return contracts.CacheStats{
		Entries:   total,
		Expired:   expired,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		TTL:       c.ttl,
	}
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func matches(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
