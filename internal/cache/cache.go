// Package cache implements the fingerprint-keyed response cache
// (spec.md §4.7, C10): TTL, byte cap, LRU eviction, single-flight.
//
// DESIGN: the CacheEntry shape follows pario-ai's CacheEntry
// (prompt hash / response / created_at / ttl); the locked map plus
// background-independent accounting follows the teacher's
// costcontrol.Tracker idiom, generalized with an intrusive LRU list
// for eviction and a per-key in-flight map for single-flight
// coalescing (golang.org/x/sync/singleflight does the same job, but
// the teacher pack never imports it, so this is hand-rolled in its
// style rather than reaching outside the grounded stack).
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Value is what a cache entry stores (spec.md §3: CacheEntry.value).
type Value struct {
	Response     string
	EndpointUsed string
	CompletedAt  time.Time
	TokenUsage   int
}

// Entry is a materialized cache row.
type Entry struct {
	Key            string
	Value          Value
	TTLDeadline    time.Time
	InflightWaiters int
}

type entryNode struct {
	key         string
	value       Value
	ttlDeadline time.Time
	size        int64
}

// Cache is a single-flight, TTL, LRU response cache. Safe for
// concurrent use. One mutex guards the whole map and LRU list, so
// reads and writes on distinct keys briefly serialize on it; a
// producer running inside GetOrCompute does not hold the mutex.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	totalBytes int64
	maxBytes   int64
	maxEntries int
	defaultTTL time.Duration

	inflight map[string]*call
}

type call struct {
	wg    sync.WaitGroup
	value Value
	err   error
}

// New builds an empty Cache.
func New(maxEntries int, maxBytes int64, defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxBytes:   maxBytes,
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		inflight:   make(map[string]*call),
	}
}

// Get returns the cached value for key, or ok=false on miss or
// expiry. An expired entry is removed lazily on read.
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Value{}, false
	}
	node := el.Value.(*entryNode)
	if time.Now().After(node.ttlDeadline) {
		c.removeLocked(el)
		return Value{}, false
	}
	c.order.MoveToFront(el)
	return node.value, true
}

// Put stores value under key with the given TTL. It does not inspect
// the value; GetOrCompute calls it only for producer results that
// returned no error.
func (c *Cache) Put(key string, value Value, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	size := int64(len(value.Response))

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		old := el.Value.(*entryNode)
		c.totalBytes -= old.size
		old.value = value
		old.ttlDeadline = time.Now().Add(ttl)
		old.size = size
		c.totalBytes += size
		c.order.MoveToFront(el)
	} else {
		node := &entryNode{key: key, value: value, ttlDeadline: time.Now().Add(ttl), size: size}
		el := c.order.PushFront(node)
		c.entries[key] = el
		c.totalBytes += size
	}

	c.evictLocked()
}

// Invalidate removes key unconditionally.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// Producer computes the value to cache on a miss.
type Producer func() (Value, error)

// GetOrCompute implements the single-flight contract of spec.md §4.7:
// at most one producer runs per key at a time; coalesced callers
// receive the same result.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, produce Producer) (Value, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if existing, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		existing.wg.Wait()
		return existing.value, existing.err
	}

	cl := &call{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	c.mu.Unlock()

	value, err := produce()
	cl.value = value
	cl.err = err
	cl.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	if err == nil {
		c.Put(key, value, ttl)
	}
	return value, err
}

func (c *Cache) evictLocked() {
	for (c.maxEntries > 0 && c.entries != nil && len(c.entries) > c.maxEntries) ||
		(c.maxBytes > 0 && c.totalBytes > c.maxBytes) {
		// in-flight keys are never evicted; walk toward the front past
		// them to the oldest entry that is not in flight
		back := c.order.Back()
		for back != nil {
			if _, inflight := c.inflight[back.Value.(*entryNode).key]; !inflight {
				break
			}
			back = back.Prev()
		}
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	node := el.Value.(*entryNode)
	c.totalBytes -= node.size
	delete(c.entries, node.key)
	c.order.Remove(el)
}

// Len returns the number of live entries, for diagnostics/status.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the total size in bytes of all live entries, for
// diagnostics/status.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}
