// Package cache provides TTL and size bounded key-value caches.
//
// Each signal type (dictionary lookups, neural classifications, suggestion
// lists) gets its own cache with an independent max size and TTL. Expired
// entries are never served: Get removes them lazily, and a background
// Sweeper periodically clears them across all registered caches regardless
// of access. Eviction at capacity removes the oldest-created entries first,
// an approximation of LRU that is cheap enough for the keystroke path.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry wraps a cached value with its bookkeeping.
type entry[V any] struct {
	value       V
	createdAt   time.Time
	accessCount uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Name      string
	Size      int
	MaxSize   int
	TTL       time.Duration
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// HitRate returns hits/(hits+misses), or 0 with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a TTL and size bounded map. Callers must fold every dimension
// that distinguishes results (in particular the language) into the key.
type Cache[K comparable, V any] struct {
	name    string
	maxSize int
	ttl     time.Duration

	mu      sync.Mutex
	entries map[K]*entry[V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64

	now func() time.Time // test hook
}

// New creates a cache with the given bounds.
func New[K comparable, V any](name string, maxSize int, ttl time.Duration) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache[K, V]{
		name:    name,
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[K]*entry[V], maxSize),
		now:     time.Now,
	}
}

// Get returns the cached value. Entries older than the TTL are removed and
// reported as misses, even immediately after the TTL boundary.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		c.expired.Add(1)
		c.misses.Add(1)
		return zero, false
	}
	e.accessCount++
	c.hits.Add(1)
	return e.value, true
}

// Set stores a value, evicting the oldest entries first at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked(len(c.entries) - c.maxSize + 1)
	}
	c.entries[key] = &entry[V]{value: value, createdAt: c.now()}
}

// Delete removes a single entry.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V], c.maxSize)
}

// Len returns the current entry count.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Name:      c.name,
		Size:      size,
		MaxSize:   c.maxSize,
		TTL:       c.ttl,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
	}
}

// RemoveExpired removes every expired entry and returns how many.
func (c *Cache[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	c.expired.Add(uint64(removed))
	return removed
}

// evictOldestLocked removes the n oldest-created entries.
func (c *Cache[K, V]) evictOldestLocked(n int) {
	for ; n > 0; n-- {
		var (
			oldestKey K
			oldestAt  time.Time
			found     bool
		)
		for k, e := range c.entries {
			if !found || e.createdAt.Before(oldestAt) {
				oldestKey, oldestAt, found = k, e.createdAt, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}
