package web

import (
	"container/list"
	"sync"

	"mdtree/internal/store"
)

// treeCache keeps the most recently served entries in memory so hot posts
// skip the sqlite round trip. Entries are only returned for a matching hash.
type treeCache struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type cachedTree struct {
	slug  string
	entry *store.Entry
}

func newTreeCache(max int) *treeCache {
	return &treeCache{max: max, order: list.New(), items: make(map[string]*list.Element)}
}

func (c *treeCache) get(slug, hash string) (*store.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[slug]
	if !ok {
		return nil, false
	}
	item := el.Value.(*cachedTree)
	if item.entry.Hash != hash {
		c.order.Remove(el)
		delete(c.items, slug)
		return nil, false
	}
	c.order.MoveToFront(el)
	return item.entry, true
}

func (c *treeCache) put(entry *store.Entry) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[entry.Slug]; ok {
		el.Value.(*cachedTree).entry = entry
		c.order.MoveToFront(el)
		return
	}
	c.items[entry.Slug] = c.order.PushFront(&cachedTree{slug: entry.Slug, entry: entry})
	for c.order.Len() > c.max {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cachedTree).slug)
	}
}

func (c *treeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
