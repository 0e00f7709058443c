package internal

import (
	"container/list"
	"strings"
	"sync"

	"github.com/lychee-technology/sift"
)

// QueryCache memoizes resolved filter nodes for the lifetime of the
// process. It is an explicitly injected, bounded LRU: the schema
// signature inside the key turns dataset changes into misses, and the
// size bound turns unbounded session growth into evictions.
type QueryCache struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key    string
	node   sift.Node
	source sift.Source
}

// NewQueryCache creates a cache bounded to max entries.
func NewQueryCache(max int) *QueryCache {
	if max <= 0 {
		max = 1
	}
	return &QueryCache{
		max:   max,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// CacheKey combines entity, schema signature, and normalized query text.
func CacheKey(entity sift.Entity, schema []sift.FieldSchema, text string) string {
	return string(entity) + "\x1e" + sift.SchemaSignature(schema) + "\x1e" + NormalizeQuery(text)
}

// NormalizeQuery lowercases and collapses whitespace so cosmetic
// variations of the same question share a cache slot.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Get returns the cached node and its provenance, marking the entry
// recently used.
func (c *QueryCache) Get(key string) (sift.Node, sift.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, "", false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.node, entry.source, true
}

// Put stores a resolved node, evicting the least recently used entry
// when the bound is exceeded.
func (c *QueryCache) Put(key string, node sift.Node, source sift.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cacheEntry)
		entry.node = node
		entry.source = source
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, node: node, source: source})
	c.items[key] = el
	if c.order.Len() > c.max {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len reports the current entry count.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
