// Package cache provides a caching layer for NCBI E-utilities responses.
package cache

import "sync/atomic"

// Cache defines the interface for caching PubMed responses. Entries expire
// after the backend's configured TTL and the store holds at most the
// configured number of live entries, evicting least-recently-used entries
// when full.
type Cache interface {
	// Get retrieves data from the cache by key.
	// Returns the data and true if found and not expired, otherwise nil and false.
	Get(key string) ([]byte, bool)

	// Set stores data in the cache under the given key.
	Set(key string, data []byte) error

	// Clear removes all entries from the cache. Hit/miss/set counters are
	// lifetime statistics and survive a Clear.
	Clear() error

	// Stats returns a point-in-time snapshot of cache statistics.
	Stats() Stats

	// Close closes the cache and releases resources.
	Close() error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

// counters tracks lifetime hit/miss/set counts shared by the backends.
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

func (c *counters) snapshot(size, maxSize int) Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:    size,
		MaxSize: maxSize,
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		HitRate: hitRate,
	}
}
