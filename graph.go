package silo

// edgeKey names a one-component structural transition: adding or
// removing id from a given class. Archetypes one edge apart form the
// lazily-built graph spec §4.4/§9 calls for ("edge installation is
// lazy: the first traversal through a not-yet-seen id builds it").
type edgeKey struct {
	class ComponentClass
	id    ComponentID
}

// ArchetypeGraph holds an archetype's edges to its neighbors: the
// archetype reached by adding id (AddEdge) and the one reached by
// removing id (DelEdge). Modeled on delaneyj-arche's archetype
// transition-node pattern (`toAdd`/`toRemove` maps keyed by component
// id), generalized to the two component classes this module supports.
//
// Edges are plain Go maps, not intmap: they are small (bounded by the
// number of distinct components ever added/removed from this one
// archetype) and cold relative to the lookup table and query caches,
// which do sit on intmap (spec DOMAIN STACK: "plain Go maps are kept
// only for cold, rarely-touched bookkeeping").
type ArchetypeGraph struct {
	addEdge map[edgeKey]ArchetypeID
	delEdge map[edgeKey]ArchetypeID
}

func newArchetypeGraph() ArchetypeGraph {
	return ArchetypeGraph{
		addEdge: make(map[edgeKey]ArchetypeID),
		delEdge: make(map[edgeKey]ArchetypeID),
	}
}

// FindEdgeRight looks up the archetype reached by adding (class, id).
func (g *ArchetypeGraph) FindEdgeRight(class ComponentClass, id ComponentID) (ArchetypeID, bool) {
	dst, ok := g.addEdge[edgeKey{class, id}]
	return dst, ok
}

// FindEdgeLeft looks up the archetype reached by removing (class, id).
func (g *ArchetypeGraph) FindEdgeLeft(class ComponentClass, id ComponentID) (ArchetypeID, bool) {
	dst, ok := g.delEdge[edgeKey{class, id}]
	return dst, ok
}

// installEdge records both directions of a transition between two
// archetypes that differ by exactly one component: from, which lacks
// (class, id), reaches to by adding it, and to reaches from by removing
// it.
func installEdge(from, to *Archetype, class ComponentClass, id ComponentID) {
	from.graph.addEdge[edgeKey{class, id}] = to.id
	to.graph.delEdge[edgeKey{class, id}] = from.id
}
