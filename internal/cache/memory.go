package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a typed wrapper around go-cache
type Memory[V any] struct {
	cache *gocache.Cache
}

// NewMemory creates a memory cache. A ttl of zero keeps entries until they
// are deleted or the cache is cleared.
func NewMemory[V any](defaultTTL, cleanupInterval time.Duration) *Memory[V] {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &Memory[V]{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *Memory[V]) Get(key string) (V, bool) {
	var zero V
	val, found := c.cache.Get(key)
	if !found {
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value. A zero ttl uses the cache default.
func (c *Memory[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

// Delete removes a value from the cache
func (c *Memory[V]) Delete(key string) {
	c.cache.Delete(key)
}

// Clear removes all values from the cache
func (c *Memory[V]) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached items, including expired ones not yet
// cleaned up
func (c *Memory[V]) Len() int {
	return c.cache.ItemCount()
}

var _ Cache[string] = (*Memory[string])(nil)
