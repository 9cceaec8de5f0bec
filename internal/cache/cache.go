// Package cache provides the TTL + FIFO-eviction cache used on both the
// server (page cache) and the client (response cache, view cache).
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Entry wraps a cached payload with its insertion timestamp.
// An entry is valid iff now - Timestamp < TTL.
type Entry[T any] struct {
	Key       string
	Payload   T
	Timestamp time.Time
}

// Cache is a bounded TTL cache with FIFO eviction: when an insert would
// exceed capacity, the oldest-inserted entry is evicted regardless of access
// recency. A zero maxSize means unbounded.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
	now     func() time.Time
}

// New creates a cache with the given TTL and capacity.
func New[T any](ttl time.Duration, maxSize int) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// SetClock replaces the time source, for deterministic tests.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the payload for key if present and unexpired.
// An expired entry is removed on lookup.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	entry := el.Value.(*Entry[T])
	if c.now().Sub(entry.Timestamp) >= c.ttl {
		c.removeLocked(el)
		return zero, false
	}
	return entry.Payload, true
}

// Set inserts or replaces the payload under key. Expired entries are swept
// before the capacity check; if the cache is still full afterwards, the
// oldest-inserted entry is evicted.
func (c *Cache[T]) Set(key string, payload T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing key resets its insertion position.
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}

	c.sweepLocked()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	el := c.order.PushBack(&Entry[T]{Key: key, Payload: payload, Timestamp: c.now()})
	c.entries[key] = el
}

// Delete removes key if present.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Sweep proactively drops all expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

// Len returns the number of entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) sweepLocked() int {
	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*Entry[T]).Timestamp) >= c.ttl {
			c.removeLocked(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *Cache[T]) removeLocked(el *list.Element) {
	delete(c.entries, el.Value.(*Entry[T]).Key)
	c.order.Remove(el)
}
