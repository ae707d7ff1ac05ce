package storage

import (
	"sync"

	"filehost/logger"
)

// evictBatch is how many entries are dropped from the front once the cache
// overflows. Evicting a few at a time amortizes the cost; the bound is soft.
const evictBatch = 3

// Cache is a bounded, insertion-ordered map of hydrated files. Eviction is
// FIFO in batches of evictBatch; there is no targeted invalidation, so an
// entry mutated elsewhere (a record soft-deleted in the store) keeps being
// served stale until it ages out. Callers treat hits as eventually
// consistent.
type Cache struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]*File
}

// NewCache returns a cache evicting once more than max entries are held.
func NewCache(max int) *Cache {
	return &Cache{
		max:  max,
		byID: make(map[string]*File),
	}
}

// Put inserts a file. Re-putting an id replaces the held instance but keeps
// its original position in eviction order. Eviction and insertion happen
// under one lock so concurrent uploads cannot race the bound.
func (c *Cache) Put(f *File) {
	if f == nil || f.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[f.ID]; ok {
		c.byID[f.ID] = f
		return
	}

	c.byID[f.ID] = f
	c.order = append(c.order, f.ID)

	if len(c.order) > c.max {
		n := evictBatch
		if n > len(c.order) {
			n = len(c.order)
		}
		logger.Debug("cache over %d entries, evicting %d from the front", c.max, n)
		for _, id := range c.order[:n] {
			delete(c.byID, id)
		}
		c.order = c.order[n:]
	}
}

// Get returns the cached file for id, or nil. The instance returned is
// whatever was last Put for that id, not necessarily the newest store state.
func (c *Cache) Get(id string) *File {
	if id == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byID[id]
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.Debug("clearing %d cached files", len(c.order))
	c.order = nil
	c.byID = make(map[string]*File)
}
