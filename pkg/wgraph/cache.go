package wgraph

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/panbanda/linkage/internal/metrics"
)

// Cache shares shortest-path computations between graphs of equal shape.
// Lookups are concurrent; a miss computes at most once per key even under
// concurrent callers. Entries are keyed by the structural hash and verified
// against the canonical key, so a hash collision never returns a foreign
// computation.
type Cache struct {
	mu      sync.RWMutex
	entries map[uint64]*computation
	group   singleflight.Group
	metrics *metrics.Metrics
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMetrics records hits, misses and collisions.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{entries: make(map[uint64]*computation)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShortestPath freezes g and returns a computation shared with every other
// graph of the same shape seen by this cache. A nil cache does not share.
func (c *Cache) ShortestPath(g *Graph) *ShortestPath {
	sp := g.ShortestPath()
	if c == nil {
		return sp
	}
	sp.comp = c.intern(sp.comp)
	return sp
}

func (c *Cache) intern(fresh *computation) *computation {
	if comp, ok := c.lookup(fresh); ok {
		c.hit()
		return comp
	}

	v, _, _ := c.group.Do(strconv.FormatUint(fresh.hash, 16), func() (any, error) {
		if comp, ok := c.lookup(fresh); ok {
			return comp, nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, taken := c.entries[fresh.hash]; taken && existing.key != fresh.key {
			c.collision()
			return fresh, nil
		}
		c.entries[fresh.hash] = fresh
		c.miss()
		return fresh, nil
	})
	comp := v.(*computation)
	if comp.key != fresh.key {
		// A concurrent flight for a colliding shape won the key.
		c.collision()
		return fresh
	}
	return comp
}

func (c *Cache) lookup(fresh *computation) (*computation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	comp, ok := c.entries[fresh.hash]
	if !ok || comp.key != fresh.key {
		return nil, false
	}
	return comp, true
}

// Len returns the number of cached shapes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.GraphCacheHits.Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.GraphCacheMisses.Inc()
	}
}

func (c *Cache) collision() {
	if c.metrics != nil {
		c.metrics.GraphCollisions.Inc()
	}
}
