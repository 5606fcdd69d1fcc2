// Package cache implements the bounded in-memory store for hot entities
// (connected peers, loaded worlds) with TTL and LRU eviction.
package cache

import (
	"container/list"
	"iter"
	"sync"
	"time"
)

// Options configures a Cache.
type Options[K comparable, V any] struct {
	// TTL is measured from the last Set or Renew. Zero disables expiry.
	TTL time.Duration
	// Capacity bounds the number of entries. Zero means unbounded.
	Capacity int
	// Now overrides the clock (tests).
	Now func() time.Time
	// Clone copies values handed out by Get and All. Nil returns values as stored.
	Clone func(V) V
	// OnEvict is called after an entry is removed by TTL or LRU eviction.
	// It is not called for Delete. Runs without any cache lock held.
	OnEvict func(K, V)
}

type entry[K comparable, V any] struct {
	key  K
	elem *list.Element

	// guarded by Cache.mu
	createdAt    time.Time
	lastAccessed time.Time

	mu    sync.Mutex
	value V
}

// Cache is a generic TTL+LRU cache. Mutation of a single key is serialized
// by a per-entry lock; the map lock is never held while a patch runs.
// Lock order is entry lock, then map lock.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*entry[K, V]
	lru   *list.List // front = most recently accessed

	ttl      time.Duration
	capacity int
	now      func() time.Time
	clone    func(V) V
	onEvict  func(K, V)
}

// New creates a cache.
func New[K comparable, V any](opts Options[K, V]) *Cache[K, V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		items:    make(map[K]*entry[K, V]),
		lru:      list.New(),
		ttl:      opts.TTL,
		capacity: opts.Capacity,
		now:      now,
		clone:    opts.Clone,
		onEvict:  opts.OnEvict,
	}
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.createdAt) > c.ttl
}

// removeLocked drops e from the map and list. c.mu must be held.
func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.items, e.key)
	c.lru.Remove(e.elem)
}

// lookup returns a live entry and refreshes lastAccessed, or evicts it if expired.
func (c *Cache[K, V]) lookup(k K) (*entry[K, V], bool) {
	c.mu.Lock()
	e, ok := c.items[k]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(e)
		c.mu.Unlock()
		c.evicted(e)
		return nil, false
	}
	e.lastAccessed = now
	c.lru.MoveToFront(e.elem)
	c.mu.Unlock()
	return e, true
}

func (c *Cache[K, V]) evicted(e *entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	e.mu.Lock()
	v := e.value
	e.mu.Unlock()
	c.onEvict(e.key, v)
}

func (c *Cache[K, V]) read(e *entry[K, V]) V {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.clone != nil {
		return c.clone(e.value)
	}
	return e.value
}

// Get returns the value for k. An expired entry is evicted and reported missing.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	e, ok := c.lookup(k)
	if !ok {
		var zero V
		return zero, false
	}
	return c.read(e), true
}

// Set inserts or overwrites k with fresh timestamps. When the cache is full
// and k is new, the least recently accessed entry is evicted first.
func (c *Cache[K, V]) Set(k K, v V) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.items[k]; ok {
		e.createdAt = now
		e.lastAccessed = now
		c.lru.MoveToFront(e.elem)
		c.mu.Unlock()

		e.mu.Lock()
		e.value = v
		e.mu.Unlock()
		return
	}

	var victim *entry[K, V]
	if c.capacity > 0 && len(c.items) >= c.capacity {
		if back := c.lru.Back(); back != nil {
			victim = back.Value.(*entry[K, V])
			c.removeLocked(victim)
		}
	}
	e := &entry[K, V]{key: k, createdAt: now, lastAccessed: now, value: v}
	e.elem = c.lru.PushFront(e)
	c.items[k] = e
	c.mu.Unlock()

	if victim != nil {
		c.evicted(victim)
	}
}

// lockLive locks the entry of k and checks that it is still the one stored
// under k. An entry removed between lookup and lock is reported missing, so
// a patch never lands on a value nobody can read again.
func (c *Cache[K, V]) lockLive(k K) (*entry[K, V], bool) {
	e, ok := c.lookup(k)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	c.mu.Lock()
	live := c.items[k] == e
	c.mu.Unlock()
	if !live {
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

// Modify applies patch to the stored value under the entry lock and stores
// the result. Returns false if k is absent or expired (the latter is evicted).
func (c *Cache[K, V]) Modify(k K, patch func(V) V) bool {
	e, ok := c.lockLive(k)
	if !ok {
		return false
	}
	e.value = patch(e.value)
	e.mu.Unlock()
	return true
}

// View calls fn with the stored value under the entry lock, without copying.
// fn must not retain the value or call back into the cache for the same key.
func (c *Cache[K, V]) View(k K, fn func(V)) bool {
	e, ok := c.lockLive(k)
	if !ok {
		return false
	}
	fn(e.value)
	e.mu.Unlock()
	return true
}

// Renew resets the creation time of a live entry, extending its TTL.
func (c *Cache[K, V]) Renew(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[k]
	if !ok {
		return false
	}
	now := c.now()
	if c.expired(e, now) {
		return false
	}
	e.createdAt = now
	e.lastAccessed = now
	c.lru.MoveToFront(e.elem)
	return true
}

// Delete removes k. Returns false if it was absent.
func (c *Cache[K, V]) Delete(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[k]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// All iterates over live entries. Expired entries are skipped but not
// evicted, and lastAccessed is not touched.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		c.mu.Lock()
		now := c.now()
		live := make([]*entry[K, V], 0, len(c.items))
		for _, e := range c.items {
			if !c.expired(e, now) {
				live = append(live, e)
			}
		}
		c.mu.Unlock()

		for _, e := range live {
			if !yield(e.key, c.read(e)) {
				return
			}
		}
	}
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[K, V]) Cleanup() int {
	c.mu.Lock()
	now := c.now()
	var removed []*entry[K, V]
	for _, e := range c.items {
		if c.expired(e, now) {
			c.removeLocked(e)
			removed = append(removed, e)
		}
	}
	c.mu.Unlock()

	for _, e := range removed {
		c.evicted(e)
	}
	return len(removed)
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
