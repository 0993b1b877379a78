package preload

import (
	"container/list"
	"sync"
	"time"
)

// CacheEntry holds one cached preload result.
type CacheEntry struct {
	// Data is the raw response body.
	Data []byte

	// CreatedAt is when this entry was created.
	CreatedAt time.Time

	// ExpiresAt is when this entry expires.
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is a TTL+LRU cache for preload results, keyed by method+URL.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // LRU order (front = most recent)
}

// cacheItem holds an entry in the LRU list.
type cacheItem struct {
	key   string
	entry *CacheEntry
}

// NewCache creates a cache with the given TTL and capacity.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get retrieves a cached result. Returns nil if not found or expired.
func (c *Cache) Get(key string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil
	}

	item := elem.Value.(*cacheItem)
	if item.entry.IsExpired() {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil
	}

	c.order.MoveToFront(elem)
	return item.entry
}

// Set stores a result. If the cache is full, the least recently used
// entry is evicted.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &CacheEntry{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheItem).entry = entry
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		item := oldest.Value.(*cacheItem)
		c.order.Remove(oldest)
		delete(c.entries, item.key)
	}

	c.entries[key] = c.order.PushFront(&cacheItem{key: key, entry: entry})
}

// Delete removes a cached entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RateLimiter implements token-bucket rate limiting for speculative
// dispatches. Excess dispatches are silently dropped.
type RateLimiter struct {
	mu            sync.Mutex
	ratePerSecond float64
	tokens        float64
	lastRefill    time.Time
}

// NewRateLimiter creates a limiter allowing ratePerSecond dispatches.
func NewRateLimiter(ratePerSecond float64) *RateLimiter {
	return &RateLimiter{
		ratePerSecond: ratePerSecond,
		tokens:        ratePerSecond, // Start with full bucket
		lastRefill:    time.Now(),
	}
}

// Allow returns true if a dispatch is allowed.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()

	r.tokens += elapsed * r.ratePerSecond
	if r.tokens > r.ratePerSecond {
		r.tokens = r.ratePerSecond
	}
	r.lastRefill = now

	if r.tokens >= 1.0 {
		r.tokens -= 1.0
		return true
	}
	return false
}

// Semaphore limits concurrent speculative round trips.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given limit.
func NewSemaphore(limit int) *Semaphore {
	return &Semaphore{ch: make(chan struct{}, limit)}
}

// Acquire tries to acquire a slot. Returns false immediately if the
// semaphore is full.
func (s *Semaphore) Acquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release releases a slot.
func (s *Semaphore) Release() {
	select {
	case <-s.ch:
	default:
	}
}
