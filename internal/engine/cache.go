package engine

import (
	"sync"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// DefaultPlanCacheSize bounds the number of cached orderings.
const DefaultPlanCacheSize = 1024

type cachedPlan struct {
	generation int64
	ordered    ir.Pattern
}

// PlanCache remembers the count ordering of basic graph patterns, keyed by
// pattern fingerprint. Entries computed before the latest write are stale
// and are dropped on lookup. When full, the cache is emptied before the
// next insert.
//
// Thread-safe: all methods may be called concurrently.
type PlanCache struct {
	mu    sync.Mutex
	gen   *Generation
	max   int
	plans map[string]cachedPlan

	hits, misses int64
}

// NewPlanCache returns a cache invalidated by gen holding at most max
// entries. max <= 0 uses DefaultPlanCacheSize.
func NewPlanCache(gen *Generation, max int) *PlanCache {
	if max <= 0 {
		max = DefaultPlanCacheSize
	}
	return &PlanCache{gen: gen, max: max, plans: make(map[string]cachedPlan)}
}

// Get implements solver.PlanCache.
func (c *PlanCache) Get(p ir.Pattern) (ir.Pattern, bool) {
	key := ir.Fingerprint(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.plans[key]
	if ok && entry.generation != c.gen.Current() {
		delete(c.plans, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.ordered, true
}

// Put implements solver.PlanCache.
func (c *PlanCache) Put(p, ordered ir.Pattern) {
	key := ir.Fingerprint(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plans[key]; !ok && len(c.plans) >= c.max {
		clear(c.plans)
	}
	c.plans[key] = cachedPlan{generation: c.gen.Current(), ordered: ordered}
}

// Len returns the number of cached entries, stale ones included.
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans)
}

// Stats returns the hit and miss counts.
func (c *PlanCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
