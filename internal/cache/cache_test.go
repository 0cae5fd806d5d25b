package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	t.Run("set then get", func(t *testing.T) {
		t.Parallel()
		c, err := NewMemoryCache(8, nil)
		require.NoError(t, err)

		require.NoError(t, c.Set("down/904/16/1/2", []byte("tile")))
		data, ok := c.Get("down/904/16/1/2")
		require.True(t, ok)
		assert.Equal(t, []byte("tile"), data)

		_, ok = c.Get("down/904/16/1/3")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c, err := NewMemoryCache(2, nil)
		require.NoError(t, err)

		c.Set("a", []byte("1"))
		c.Set("b", []byte("2"))
		c.Set("c", []byte("3"))

		_, ok := c.Get("a")
		assert.False(t, ok, "oldest entry should have been evicted")
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("falls through to the next level", func(t *testing.T) {
		t.Parallel()
		disk, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)
		require.NoError(t, disk.Set("key", []byte("persisted")))

		c, err := NewMemoryCache(8, disk)
		require.NoError(t, err)

		data, ok := c.Get("key")
		require.True(t, ok)
		assert.Equal(t, []byte("persisted"), data)

		// Promoted into memory: still served after the disk copy goes.
		require.NoError(t, disk.Clear())
		data, ok = c.Get("key")
		require.True(t, ok)
		assert.Equal(t, []byte("persisted"), data)
	})

	t.Run("writes through to the next level", func(t *testing.T) {
		t.Parallel()
		disk, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)

		c, err := NewMemoryCache(8, disk)
		require.NoError(t, err)
		require.NoError(t, c.Set("key", []byte("both")))

		data, ok := disk.Get("key")
		require.True(t, ok)
		assert.Equal(t, []byte("both"), data)
	})
}

func TestDiskCache(t *testing.T) {
	t.Parallel()

	t.Run("roundtrip", func(t *testing.T) {
		t.Parallel()
		c, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)

		require.NoError(t, c.Set("down/904/16/18741/25070", []byte("tile-bytes")))
		data, ok := c.Get("down/904/16/18741/25070")
		require.True(t, ok)
		assert.Equal(t, []byte("tile-bytes"), data)

		entries, size, _ := c.Stats()
		assert.Equal(t, 1, entries)
		assert.Equal(t, int64(10), size)
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		c, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)
		_, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("survives reopen", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		first, err := NewDiskCache(dir, 10)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			require.NoError(t, first.Set(fmt.Sprintf("key-%d", i), []byte("data")))
		}

		second, err := NewDiskCache(dir, 10)
		require.NoError(t, err)
		entries, _, _ := second.Stats()
		assert.Equal(t, 5, entries)

		data, ok := second.Get("key-3")
		require.True(t, ok)
		assert.Equal(t, []byte("data"), data)
	})

	t.Run("overwrite replaces size accounting", func(t *testing.T) {
		t.Parallel()
		c, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)

		require.NoError(t, c.Set("key", []byte("0123456789")))
		require.NoError(t, c.Set("key", []byte("01")))

		entries, size, _ := c.Stats()
		assert.Equal(t, 1, entries)
		assert.Equal(t, int64(2), size)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		t.Parallel()
		c, err := NewDiskCache(t.TempDir(), 10)
		require.NoError(t, err)
		require.NoError(t, c.Set("key", []byte("data")))
		require.NoError(t, c.Clear())

		_, ok := c.Get("key")
		assert.False(t, ok)
		entries, size, _ := c.Stats()
		assert.Zero(t, entries)
		assert.Zero(t, size)
	})
}
