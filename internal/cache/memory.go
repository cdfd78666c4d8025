package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache implements the Cache interface with an in-process bounded TTL
// store. Eviction order at capacity is the LRU order of the underlying
// expirable LRU; expired entries become invisible to Get as soon as their TTL
// passes.
type MemoryCache struct {
	lru     *expirable.LRU[string, []byte]
	maxSize int
	counters
}

// NewMemoryCache creates a memory cache holding at most maxSize entries,
// each visible for ttl after it is set.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		lru:     expirable.NewLRU[string, []byte](maxSize, nil, ttl),
		maxSize: maxSize,
	}
}

// Get retrieves data from the cache by key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	data, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

// Set stores data in the cache under the given key, evicting the
// least-recently-used entry when the cache is full.
func (c *MemoryCache) Set(key string, data []byte) error {
	c.lru.Add(key, data)
	c.sets.Add(1)
	return nil
}

// Clear removes all entries. Counters are untouched.
func (c *MemoryCache) Clear() error {
	c.lru.Purge()
	return nil
}

// Stats returns a snapshot of the cache statistics.
func (c *MemoryCache) Stats() Stats {
	return c.snapshot(c.lru.Len(), c.maxSize)
}

// Close releases resources. No-op for the memory backend.
func (c *MemoryCache) Close() error {
	return nil
}

var _ Cache = (*MemoryCache)(nil)
