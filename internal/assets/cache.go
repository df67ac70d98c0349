package assets

import (
	"sync"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
)

// Cache maps bundle names to decoded bundles.
type Cache struct {
	data map[string]*bundle.Bundle
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]*bundle.Bundle)}
}

// Get retrieves a bundle and counts the hit or miss.
func (c *Cache) Get(key string) (*bundle.Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return b, ok
}

// Set stores a bundle.
func (c *Cache) Set(key string, b *bundle.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	delete(c.data, key)
	return ok
}

// Clear empties the cache and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*bundle.Bundle)
	c.hits = 0
	c.misses = 0
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
