package cache

import (
	"sync"
	"time"
)

type entry struct {
	v         any
	fetchedAt time.Time
	ttl       time.Duration
}

func (e entry) fresh(now time.Time) bool {
	if e.ttl <= 0 {
		return true
	}
	return now.Sub(e.fetchedAt) < e.ttl
}

// TTLCache is an in-memory Store. Expired entries are deliberately kept
// around: the refresh cycle serves them as stale fallback when an upstream
// fetch fails. Use Purge to drop entries stale beyond a cutoff.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), now: time.Now}
}

func (c *TTLCache) Get(key string) (any, bool, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, false
	}
	return e.v, e.fresh(c.now()), true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	c.mu.Lock()
	c.m[key] = entry{v: v, fetchedAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Purge removes entries that went stale more than maxAge ago and returns
// how many were dropped.
func (c *TTLCache) Purge(maxAge time.Duration) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.m {
		if e.ttl > 0 && now.Sub(e.fetchedAt) > e.ttl+maxAge {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Stats counts fresh and stale entries.
func (c *TTLCache) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Total: len(c.m)}
	for _, e := range c.m {
		if e.fresh(now) {
			s.Fresh++
		} else {
			s.Stale++
		}
	}
	return s
}
