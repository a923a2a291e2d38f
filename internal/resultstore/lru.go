package resultstore

import (
	"container/list"
	"sync"

	"github.com/roach88/spotview/internal/record"
)

// lru is a fixed-size cache of decoded records. Fetch holds only a read lock
// on the store, so the cache has its own mutex.
type lru struct {
	mu    sync.Mutex
	max   int
	order *list.List // front = most recently used
	items map[record.ID]*list.Element
}

type lruEntry struct {
	id  record.ID
	rec record.Record
}

func newLRU(max int) *lru {
	return &lru{
		max:   max,
		order: list.New(),
		items: make(map[record.ID]*list.Element, max),
	}
}

func (c *lru) get(id record.ID) (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		return record.Record{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).rec, true
}

func (c *lru) put(id record.ID, r record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		el.Value.(*lruEntry).rec = r
		c.order.MoveToFront(el)
		return
	}
	c.items[id] = c.order.PushFront(&lruEntry{id: id, rec: r})
	for c.order.Len() > c.max {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*lruEntry).id)
	}
}

func (c *lru) remove(id record.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.order.Remove(el)
		delete(c.items, id)
	}
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
