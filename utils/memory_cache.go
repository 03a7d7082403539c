package utils

import (
	"sync"
	"time"
)

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// MemoryCache is an in-process map with per-item expiration
type MemoryCache[V any] struct {
	items map[string]cacheItem[V]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose items live for ttl unless Set says otherwise
func NewMemoryCache[V any](ttl time.Duration) *MemoryCache[V] {
	cache := &MemoryCache[V]{
		items: make(map[string]cacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	go cache.cleanupLoop(time.Minute)

	return cache
}

// Set stores a value; ttl <= 0 uses the cache default
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	c.items[key] = cacheItem[V]{value: value, expiration: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get retrieves a live value
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || c.now().After(item.expiration) {
		var zero V
		if exists {
			c.Delete(key)
		}
		return zero, false
	}
	return item.value, true
}

// GetOrCreate returns the live value for key, storing create() when there is none.
// Each hit extends the item's lifetime by the default ttl.
func (c *MemoryCache[V]) GetOrCreate(key string, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	item, exists := c.items[key]
	if !exists || now.After(item.expiration) {
		item = cacheItem[V]{value: create()}
	}
	item.expiration = now.Add(c.ttl)
	c.items[key] = item

	return item.value
}

// Delete removes an item from cache
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Size returns the number of items in cache, expired ones included until cleanup
func (c *MemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache[V]) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *MemoryCache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}
