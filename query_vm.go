package silo

// MatchingCtx accumulates one Exec call's results: pMatchesArr (ordered,
// spec §4.5.3) backed by a dedup set (pMatchesSet) kept in sync with it
// per the §4.5.5 invariant that the two always agree.
type MatchingCtx struct {
	Matches []*Archetype
	set     map[ArchetypeID]bool
}

func newMatchingCtx() *MatchingCtx {
	return &MatchingCtx{set: make(map[ArchetypeID]bool)}
}

func (m *MatchingCtx) add(a *Archetype) {
	if m.set[a.id] {
		return
	}
	m.set[a.id] = true
	m.Matches = append(m.Matches, a)
}

// removeAt drops the match at index i, keeping Matches/set in sync.
func (m *MatchingCtx) removeAt(i int) {
	a := m.Matches[i]
	delete(m.set, a.id)
	m.Matches = append(m.Matches[:i], m.Matches[i+1:]...)
}

// exec runs q's compiled op program against world-owned archetype state
// (spec §4.5.3), compiling first if the terms changed since the last
// run. byID resolves an ArchetypeID to its live *Archetype.
func (q *Query) exec(allOrdered []*Archetype, byID func(ArchetypeID) *Archetype, entityMap *entityToArchetypeMap, relations RelationsTraverser, descs CompDescCache) *MatchingCtx {
	if !q.IsCompiled() {
		q.compile(descs)
	}
	ctx := newMatchingCtx()
	ranBefore := false
	for _, o := range q.ops {
		switch o.kind {
		case opALL:
			q.execALL(o, ctx, allOrdered, byID, entityMap, relations)
			ranBefore = true
		case opANY:
			q.execANY(o, ctx, ranBefore, allOrdered, byID, entityMap, relations)
			ranBefore = true
		case opNOT:
			q.execNOT(o, ctx, ranBefore, allOrdered, relations)
		}
	}
	return ctx
}

// execALL walks the archetypes registered under the op's anchor id (its
// first id) from the cached cursor onward, matching each against the
// full ids_all list (§4.5.3 ALL op). A wildcard or Is anchor has no
// concrete entry in entityToArchetypeMap (that index is keyed by the
// concrete ids an archetype actually carries, never by a query-side
// wildcard) — Wildcard/Complex shapes fall back to a full scan over
// every known archetype instead, still incremental via their own
// global cursor.
func (q *Query) execALL(o op, ctx *MatchingCtx, allOrdered []*Archetype, byID func(ArchetypeID) *Archetype, entityMap *entityToArchetypeMap, relations RelationsTraverser) {
	if o.shape != shapeSimple {
		start := q.cache.cursor(q.cache.lastAll, notGlobalCursorKey)
		for i := start; i < len(allOrdered); i++ {
			a := allOrdered[i]
			if evalMatch(matchALL, o.ids, a.allIDs(), relations) {
				ctx.add(a)
			}
		}
		q.cache.advance(q.cache.lastAll, notGlobalCursorKey, len(allOrdered))
		return
	}

	anchor := o.ids[0].Key()
	list := entityMap.ArchetypesWith(o.ids[0])
	start := q.cache.cursor(q.cache.lastAll, anchor)
	for i := start; i < len(list); i++ {
		a := byID(list[i])
		if a == nil {
			continue
		}
		if !a.queryMask.ContainsAll(o.bloom) {
			continue
		}
		if evalMatch(matchALL, o.ids, a.allIDs(), relations) {
			ctx.add(a)
		}
	}
	q.cache.advance(q.cache.lastAll, anchor, len(list))
}

// execANY either filters the existing candidate set in place (ALL or a
// prior ANY already ran), or unions archetypes from each any-id's own
// bucket, each tracked by its own incremental cursor (§4.5.3 ANY op).
// Wildcard/Complex terms have no concrete entityToArchetypeMap bucket to
// union from (same reasoning as execALL) and fall back to one full scan
// over every known archetype under the op's own global cursor.
func (q *Query) execANY(o op, ctx *MatchingCtx, ranBefore bool, allOrdered []*Archetype, byID func(ArchetypeID) *Archetype, entityMap *entityToArchetypeMap, relations RelationsTraverser) {
	if ranBefore {
		for i := 0; i < len(ctx.Matches); {
			if evalMatch(matchANY, o.ids, ctx.Matches[i].allIDs(), relations) {
				i++
				continue
			}
			ctx.removeAt(i)
		}
		return
	}

	if o.shape != shapeSimple {
		start := q.cache.cursor(q.cache.lastAny, notGlobalCursorKey)
		for i := start; i < len(allOrdered); i++ {
			a := allOrdered[i]
			if evalMatch(matchANY, o.ids, a.allIDs(), relations) {
				ctx.add(a)
			}
		}
		q.cache.advance(q.cache.lastAny, notGlobalCursorKey, len(allOrdered))
		return
	}

	for _, id := range o.ids {
		key := id.Key()
		list := entityMap.ArchetypesWith(id)
		start := q.cache.cursor(q.cache.lastAny, key)
		for i := start; i < len(list); i++ {
			a := byID(list[i])
			if a == nil {
				continue
			}
			if evalMatch(matchANY, o.ids, a.allIDs(), relations) {
				ctx.add(a)
			}
		}
		q.cache.advance(q.cache.lastAny, key, len(list))
	}
}

// execNOT filters the current candidate set in place when ALL or ANY
// already ran, or — if NOT is the only op — starts from every known
// archetype, using its own global incremental cursor (§4.5.3 NOT op).
func (q *Query) execNOT(o op, ctx *MatchingCtx, ranBefore bool, allOrdered []*Archetype, relations RelationsTraverser) {
	if ranBefore {
		for i := 0; i < len(ctx.Matches); {
			if evalMatch(matchNOT, o.ids, ctx.Matches[i].allIDs(), relations) {
				i++
				continue
			}
			ctx.removeAt(i)
		}
		return
	}
	start := q.cache.cursor(q.cache.lastNot, notGlobalCursorKey)
	for i := start; i < len(allOrdered); i++ {
		a := allOrdered[i]
		if evalMatch(matchNOT, o.ids, a.allIDs(), relations) {
			ctx.add(a)
		}
	}
	q.cache.advance(q.cache.lastNot, notGlobalCursorKey, len(allOrdered))
}
