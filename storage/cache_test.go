package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehost/models"
)

func cachedFile(id string) *File {
	return &File{FileRecord: models.FileRecord{ID: id, Name: id + ".txt"}}
}

func TestCachePutGet(t *testing.T) {
	c := NewCache(10)

	f := cachedFile("abc1234567")
	c.Put(f)

	got := c.Get("abc1234567")
	require.NotNil(t, got)
	assert.Same(t, f, got)

	assert.Nil(t, c.Get("missing777"))
	assert.Nil(t, c.Get(""))
}

func TestCacheFIFOBatchEviction(t *testing.T) {
	const max = 5
	c := NewCache(max)

	ids := make([]string, 0, max+1)
	for i := 0; i < max+1; i++ {
		id := fmt.Sprintf("file-%04d", i)
		ids = append(ids, id)
		c.Put(cachedFile(id))
	}

	// Crossing the bound drops exactly evictBatch entries from the front.
	assert.Equal(t, max+1-evictBatch, c.Len())
	for _, id := range ids[:evictBatch] {
		assert.Nil(t, c.Get(id), "oldest entry %s should be evicted", id)
	}
	for _, id := range ids[evictBatch:] {
		assert.NotNil(t, c.Get(id), "newer entry %s should survive", id)
	}
}

func TestCacheEvictionIsBatchedNotPerPut(t *testing.T) {
	const max = 5
	c := NewCache(max)

	for i := 0; i < max+1; i++ {
		c.Put(cachedFile(fmt.Sprintf("a-%04d", i)))
	}
	// One batch evicted; the next two puts must not trigger another.
	c.Put(cachedFile("b-0000"))
	c.Put(cachedFile("b-0001"))
	assert.Equal(t, max, c.Len())
	assert.NotNil(t, c.Get(fmt.Sprintf("a-%04d", evictBatch)))
}

func TestCacheReplacementKeepsPosition(t *testing.T) {
	c := NewCache(10)

	first := cachedFile("same-id-77")
	second := cachedFile("same-id-77")
	c.Put(first)
	c.Put(second)

	assert.Equal(t, 1, c.Len())
	assert.Same(t, second, c.Get("same-id-77"))
}

func TestCacheServesStaleDeletedEntry(t *testing.T) {
	// No targeted invalidation exists: an entry flagged deleted after being
	// cached keeps coming back until it ages out. Documented behaviour, not
	// a bug.
	c := NewCache(10)

	f := cachedFile("stale12345")
	c.Put(f)
	f.Deleted = true

	got := c.Get("stale12345")
	require.NotNil(t, got)
	assert.True(t, got.Deleted)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(10)
	c.Put(cachedFile("abc1234567"))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Get("abc1234567"))
}
