package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DiskCache persists tile bytes across runs with LRU eviction by file
// access time. Keys are hashed into a two-level directory layout to stay
// clear of filesystem limits.
type DiskCache struct {
	baseDir   string
	maxSize   int64 // bytes
	currSize  int64 // atomic
	mu        sync.RWMutex
	index     map[string]*diskEntry
	evictChan chan struct{}
}

type diskEntry struct {
	filePath   string
	size       int64
	accessTime time.Time
}

// NewDiskCache opens (or creates) a disk cache rooted at baseDir capped
// at maxSizeMB megabytes.
func NewDiskCache(baseDir string, maxSizeMB int) (*DiskCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &DiskCache{
		baseDir:   baseDir,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		index:     make(map[string]*diskEntry),
		evictChan: make(chan struct{}, 1),
	}

	if err := c.loadIndex(); err != nil {
		return nil, fmt.Errorf("failed to load cache index: %w", err)
	}

	go c.evictionWorker()

	return c, nil
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	hashed := hashKey(key)

	c.mu.RLock()
	entry, exists := c.index[hashed]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	data, err := os.ReadFile(entry.filePath)
	if err != nil {
		// File vanished underneath us, drop the index entry.
		c.mu.Lock()
		delete(c.index, hashed)
		c.mu.Unlock()
		atomic.AddInt64(&c.currSize, -entry.size)
		return nil, false
	}

	c.mu.Lock()
	entry.accessTime = time.Now()
	c.mu.Unlock()

	return data, true
}

func (c *DiskCache) Set(key string, data []byte) error {
	hashed := hashKey(key)
	size := int64(len(data))
	filePath := filepath.Join(c.baseDir, hashed[:2], hashed+".tile")

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	entry := &diskEntry{filePath: filePath, size: size, accessTime: time.Now()}

	c.mu.Lock()
	if old, exists := c.index[hashed]; exists {
		atomic.AddInt64(&c.currSize, -old.size)
	}
	c.index[hashed] = entry
	c.mu.Unlock()

	atomic.AddInt64(&c.currSize, size)

	if atomic.LoadInt64(&c.currSize) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default: // already signaled
		}
	}

	return nil
}

// Stats returns entry count and current/max sizes in bytes.
func (c *DiskCache) Stats() (entries int, sizeBytes, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached tiles.
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.index {
		os.Remove(entry.filePath)
	}
	c.index = make(map[string]*diskEntry)
	atomic.StoreInt64(&c.currSize, 0)
	return nil
}

func (c *DiskCache) evictionWorker() {
	for range c.evictChan {
		c.evict()
	}
}

// evict removes least recently used tiles until the cache is at 90% of
// its cap, leaving headroom against thrashing.
func (c *DiskCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}
	targetSize := c.maxSize * 9 / 10

	type sortEntry struct {
		key        string
		accessTime time.Time
		size       int64
	}
	entries := make([]sortEntry, 0, len(c.index))
	for key, entry := range c.index {
		entries = append(entries, sortEntry{key, entry.accessTime, entry.size})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessTime.Before(entries[j].accessTime)
	})

	for _, e := range entries {
		if currSize <= targetSize {
			break
		}
		entry := c.index[e.key]
		os.Remove(entry.filePath)
		delete(c.index, e.key)
		atomic.AddInt64(&c.currSize, -entry.size)
		currSize -= entry.size
	}
}

// loadIndex rebuilds the in-memory index from the cache directory.
func (c *DiskCache) loadIndex() error {
	return filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".tile" {
			return nil
		}

		name := filepath.Base(path)
		hashed := name[:len(name)-len(".tile")]

		c.index[hashed] = &diskEntry{
			filePath:   path,
			size:       info.Size(),
			accessTime: info.ModTime(),
		}
		atomic.AddInt64(&c.currSize, info.Size())
		return nil
	})
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
