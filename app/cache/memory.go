package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	verdict   bool
	expiresAt time.Time
}

type MemoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
	mu      sync.RWMutex
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (c *MemoryCache) Lookup(ctx context.Context, url string) (bool, bool) {
	c.mu.RLock()
	e, ok := c.entries[ProbeKey(url)]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return false, false
	}
	return e.verdict, true
}

func (c *MemoryCache) Store(ctx context.Context, url string, verdict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[ProbeKey(url)] = entry{verdict: verdict, expiresAt: now.Add(c.ttl)}
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
