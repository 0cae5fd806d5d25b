package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is a fixed-entry-count in-memory LRU for tile bytes. It
// fronts the disk cache within a run so that probe tiles re-requested
// during assembly never touch the disk or the network twice.
type MemoryCache struct {
	lru  *lru.Cache[string, []byte]
	next Store // optional second level
}

// NewMemoryCache creates a memory cache holding up to entries tiles,
// optionally layered over a second-level store.
func NewMemoryCache(entries int, next Store) (*MemoryCache, error) {
	l, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l, next: next}, nil
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if data, ok := c.lru.Get(key); ok {
		return data, true
	}
	if c.next == nil {
		return nil, false
	}
	data, ok := c.next.Get(key)
	if ok {
		c.lru.Add(key, data)
	}
	return data, ok
}

func (c *MemoryCache) Set(key string, data []byte) error {
	c.lru.Add(key, data)
	if c.next == nil {
		return nil
	}
	return c.next.Set(key, data)
}
