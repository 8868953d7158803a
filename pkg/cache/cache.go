// Package cache wraps ristretto as a small in-process TTL cache for values
// that change rarely but are read on every request, such as the business an
// employee belongs to.
package cache

import (
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a typed string-keyed TTL cache. Every entry costs 1, so maxEntries
// bounds the number of cached values.
type Cache[V any] struct {
	c   *ristretto.Cache[string, V]
	ttl time.Duration
}

// New creates a cache holding at most maxEntries values for ttl each.
func New[V any](maxEntries int64, ttl time.Duration) (*Cache[V], error) {
	if maxEntries <= 0 {
		return nil, errors.New("cache max entries must be positive")
	}
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c, ttl: ttl}, nil
}

// Get returns the cached value for key. A nil cache always misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil || c.c == nil {
		var zero V
		return zero, false
	}
	return c.c.Get(key)
}

// Set stores value and waits for the write buffer so the next Get sees it.
func (c *Cache[V]) Set(key string, value V) bool {
	if c == nil || c.c == nil {
		return false
	}
	ok := c.c.SetWithTTL(key, value, 1, c.ttl)
	c.c.Wait()
	return ok
}

// Delete evicts key.
func (c *Cache[V]) Delete(key string) {
	if c == nil || c.c == nil {
		return
	}
	c.c.Del(key)
}

// Close releases the cache goroutines.
func (c *Cache[V]) Close() {
	if c == nil || c.c == nil {
		return
	}
	c.c.Close()
}
