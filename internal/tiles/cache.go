package tiles

import (
	"container/list"

	"github.com/terravox/globe/internal/terrain"
)

// DefaultCacheCapacity is the default number of grids kept resident.
const DefaultCacheCapacity = 60

// gridKey identifies one cached grid.
type gridKey struct {
	res int
	id  ID
}

type gridEntry struct {
	key  gridKey
	grid *terrain.Grid
}

// GridCache is an LRU cache of decoded elevation grids keyed by
// (resolution, tile). A hit promotes the entry to most-recently-used;
// inserting past capacity evicts the least-recently-used entry. It is
// touched only from the scheduler's thread, so it carries no lock.
type GridCache struct {
	capacity int
	entries  map[gridKey]*list.Element
	order    *list.List // front = most recently used
}

// NewGridCache creates a cache holding up to capacity grids.
func NewGridCache(capacity int) *GridCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &GridCache{
		capacity: capacity,
		entries:  make(map[gridKey]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached grid for a tile at a resolution, promoting it
// to most-recently-used.
func (c *GridCache) Get(id ID, res int) (*terrain.Grid, bool) {
	el, ok := c.entries[gridKey{res, id}]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*gridEntry).grid, true
}

// Put inserts a fully decoded grid, evicting the least-recently-used
// entry if the cache is full. Re-inserting an existing key replaces its
// value and promotes it.
func (c *GridCache) Put(id ID, res int, grid *terrain.Grid) {
	key := gridKey{res, id}
	if el, ok := c.entries[key]; ok {
		el.Value.(*gridEntry).grid = grid
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*gridEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&gridEntry{key: key, grid: grid})
}

// Len returns the number of resident grids.
func (c *GridCache) Len() int { return c.order.Len() }
