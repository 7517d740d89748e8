package fontmetrics

import (
	"fmt"
	"sync"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
)

// Key identifies one memoized metrics entry
type Key struct {
	Family document.FontFamily
	Size   float64
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%g", k.Family, k.Size)
}

// Cache is a thread-safe least recently used store of metrics keyed by
// family and size
type Cache struct {
	mutex    sync.RWMutex
	capacity int
	items    map[Key]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
	hits     int64
	misses   int64
	evicted  int64
	onEvict  func(Key)
}

type cacheNode struct {
	key   Key
	value *Metrics
	prev  *cacheNode
	next  *cacheNode
}

// DefaultCacheCapacity is used when a non-positive capacity is requested
const DefaultCacheCapacity = 64

// NewCache creates a cache holding at most capacity entries
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	c := &Cache{
		capacity: capacity,
		items:    make(map[Key]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// OnEvict registers fn to be called with each evicted key. fn runs with the
// cache lock held and must not call back into the cache.
func (c *Cache) OnEvict(fn func(Key)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onEvict = fn
}

// Get retrieves metrics and marks them as recently used
func (c *Cache) Get(key Key) (*Metrics, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		c.moveToFront(node)
		c.hits++
		return node.value, true
	}

	c.misses++
	return nil, false
}

// Put adds or replaces the metrics for key
func (c *Cache) Put(key Key, value *Metrics) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		node.value = value
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, value: value}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		c.evictLRU()
	}
}

// Clear drops every entry and resets statistics
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[Key]*cacheNode)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.hits, c.misses, c.evicted = 0, 0, 0
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Keys returns cached keys from most to least recently used
func (c *Cache) Keys() []Key {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]Key, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicted,
		HitRate:   hitRate,
		Size:      len(c.items),
		Capacity:  c.capacity,
	}
}

func (c *Cache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *Cache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *Cache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *Cache) evictLRU() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.removeNode(lru)
	delete(c.items, lru.key)
	c.evicted++
	if c.onEvict != nil {
		c.onEvict(lru.key)
	}
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate_percent"`
	Size      int     `json:"current_size"`
	Capacity  int     `json:"max_capacity"`
}
