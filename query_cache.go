package silo

import "github.com/kamstrup/intmap"

// notGlobalCursorKey is the sentinel cache key for NOT's "start from
// all archetypes" cursor, which isn't keyed by any one component id.
const notGlobalCursorKey = ^uint64(0)

// queryCache holds the three incremental-scan cursors spec §4.5.5 calls
// for: lastMatchedArchetypeIdx_{All,Any,Not}, each keyed by the
// component id whose entityToArchetypeMap bucket is being walked — the
// ALL op's single anchor id, or each ANY-op term id in turn. Scans over
// every known archetype (NOT, and Wildcard/Complex ALL and ANY ops) key
// their cursor by notGlobalCursorKey instead. Backed by
// intmap for the same reason as entityToArchetypeMap: a hot id-keyed
// lookup on every query execution.
type queryCache struct {
	lastAll *intmap.Map[uint64, int]
	lastAny *intmap.Map[uint64, int]
	lastNot *intmap.Map[uint64, int]
}

func newQueryCache() queryCache {
	return queryCache{
		lastAll: intmap.New[uint64, int](4),
		lastAny: intmap.New[uint64, int](4),
		lastNot: intmap.New[uint64, int](4),
	}
}

func (c *queryCache) cursor(m *intmap.Map[uint64, int], key uint64) int {
	v, _ := m.Get(key)
	return v
}

func (c *queryCache) advance(m *intmap.Map[uint64, int], key uint64, n int) {
	m.Put(key, n)
}

// reset clears every cursor — used when a query's terms change, since a
// stale cursor could skip over an archetype that matches the new terms
// but hadn't been scanned against the old ones.
func (c *queryCache) reset() {
	c.lastAll.Clear()
	c.lastAny.Clear()
	c.lastNot.Clear()
}
