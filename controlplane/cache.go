package controlplane

import (
	"sync"
	"time"

	"github.com/playson-dev/node-promise-retry/policy"
)

type cacheEntry struct {
	cfg       policy.Config
	expiresAt time.Time
	found     bool // false marks a negative entry
}

// ConfigCache is a thread-safe TTL cache of configs, including negative entries.
type ConfigCache struct {
	mu      sync.RWMutex
	entries map[policy.Key]cacheEntry
	nowFn   func() time.Time
}

// NewConfigCache creates an empty ConfigCache.
func NewConfigCache() *ConfigCache {
	return &ConfigCache{
		entries: make(map[policy.Key]cacheEntry),
	}
}

// Get returns the live entry for key. missing is true for a negative entry.
func (c *ConfigCache) Get(key policy.Key) (cfg policy.Config, hit bool, missing bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return policy.Config{}, false, false
	}
	return entry.cfg, true, !entry.found
}

// Set caches cfg for key.
func (c *ConfigCache) Set(key policy.Key, cfg policy.Config, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{cfg: cfg, expiresAt: c.now().Add(ttl), found: true}
}

// SetMissing records that key has no config.
func (c *ConfigCache) SetMissing(key policy.Key, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{expiresAt: c.now().Add(ttl)}
}

// Invalidate drops key from the cache.
func (c *ConfigCache) Invalidate(key policy.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ConfigCache) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}
