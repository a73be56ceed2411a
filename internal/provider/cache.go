package provider

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 1024

// TTLCache is a size and time bounded key/value store. Entries expire after
// the configured TTL and the least recently used entry is evicted when the
// cache is full. It is safe for concurrent use.
type TTLCache struct {
	lru *expirable.LRU[string, any]
	ttl time.Duration
}

// NewTTLCache creates a cache holding at most size entries for ttl each.
func NewTTLCache(size int, ttl time.Duration) *TTLCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &TTLCache{
		lru: expirable.NewLRU[string, any](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the cached value for key.
func (c *TTLCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores value under key.
func (c *TTLCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Remove drops the entry for key.
func (c *TTLCache) Remove(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *TTLCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *TTLCache) Len() int {
	return c.lru.Len()
}

// TTL returns the per-entry lifetime.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}
