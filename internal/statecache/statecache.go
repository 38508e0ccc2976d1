// Package statecache provides a small keyed cache for pooled device
// states such as samplers and pipelines. Equal descriptors map to the
// same native object, so adapters front their create calls with a cache
// keyed by the descriptor value.
//
// Eviction calls a destroy hook so the native object backing an evicted
// entry is released, never leaked.
package statecache

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the default maximum number of cached states.
// Device state objects are few and expensive, so the cache is small.
const DefaultCapacity = 128

// Cache is a thread-safe LRU cache of device states keyed by descriptor
// value. A single mutex guards the cache; state creation is rare enough
// that sharding would buy nothing.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	head     *entry[K, V] // most recently used
	tail     *entry[K, V] // least recently used
	capacity int

	// onEvict is called for every value leaving the cache, including
	// via Clear. May be nil.
	onEvict func(V)

	hits   atomic.Uint64
	misses atomic.Uint64
}

// entry is a cache entry doubling as its own LRU list node.
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// New creates a cache with the given capacity and eviction hook.
// If capacity <= 0, DefaultCapacity is used. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict func(V)) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		entries:  make(map[K]*entry[K, V]),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Get retrieves a cached state by key.
// On hit the entry becomes the most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	v := e.value
	c.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// GetOrCreate returns the cached state for key, creating it with create
// on a miss. The create function runs with the cache lock held so two
// goroutines never build the same state twice.
//
// If create fails, nothing is cached and the error is returned.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{key: key, value: v}
	c.entries[key] = e
	c.pushFront(e)
	return v, nil
}

// Delete removes an entry, invoking the eviction hook on its value.
// Returns true if the entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.unlink(e)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(e.value)
	}
	return ok
}

// Clear evicts every entry, invoking the eviction hook on each value.
// Called on adapter shutdown so pooled native states are destroyed.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	evicted := make([]V, 0, len(c.entries))
	for _, e := range c.entries {
		evicted = append(evicted, e.value)
	}
	c.entries = make(map[K]*entry[K, V])
	c.head = nil
	c.tail = nil
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, v := range evicted {
			c.onEvict(v)
		}
	}
}

// Range calls fn with every cached key, in no particular order.
// fn runs with the cache lock held and must not call back into the cache.
func (c *Cache[K, V]) Range(fn func(K)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		fn(k)
	}
}

// Len returns the number of cached states.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats describes cache effectiveness.
type Stats struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// Stats returns current cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:    c.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// evictOldest removes the least recently used entry.
// Caller holds c.mu. The eviction hook runs under the lock; hooks must
// not call back into the cache.
func (c *Cache[K, V]) evictOldest() {
	e := c.tail
	if e == nil {
		return
	}
	c.unlink(e)
	delete(c.entries, e.key)
	if c.onEvict != nil {
		c.onEvict(e.value)
	}
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}
