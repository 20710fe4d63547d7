/*
Package silo implements the storage core of an archetype-based
Entity-Component-System: the chunk layout that groups entities sharing a
component signature into fixed-size memory blocks, and the query virtual
machine that matches declarative queries against the resulting archetype
set.

Core Concepts:

  - Entity: a 64-bit handle that identifies either a plain object or,
    when built with NewPair, a relationship pair.
  - Component: an Entity that has been given size/alignment/destructor
    metadata through a CompDescCache.
  - Archetype: the equivalence class of entities sharing an identical
    component signature; owns a list of Chunks and the graph edges that
    link it to archetypes one component away.
  - Chunk: a fixed-size (8 KiB or 16 KiB) block holding up to Capacity
    entities of one archetype in struct-of-arrays layout.
  - Query: a compiled ALL/ANY/NOT term program executed incrementally
    against the archetype set, including wildcard and transitive "Is-a"
    relationship matching.

silo is deliberately narrow: it does not provide a component descriptor
cache, a chunk memory pool, command buffering, or serialization as
first-class APIs — those are external collaborators (see CompDescCache,
ChunkAllocator) that a host application is expected to supply or extend.
The World type in this package is the minimal substrate needed to
exercise the core end to end, not a general-purpose ECS facade.

Basic Usage:

	w := silo.NewWorld(silo.DefaultConfig())
	position := silo.RegisterComponent[Position](w, silo.ClassGeneric)
	velocity := silo.RegisterComponent[Velocity](w, silo.ClassGeneric)

	_ = w.NewEntity(position, velocity)

	q := w.NewQuery(silo.Terms{All: []silo.ComponentID{position, velocity}})
	matches := w.Exec(q)
	for _, arch := range matches.Matches {
		for _, chunk := range arch.Chunks() {
			pos := silo.ViewMut[Position](chunk, arch.GenericIndex(position))
			vel := silo.View[Velocity](chunk, arch.GenericIndex(velocity))
			for i := range pos[:chunk.Header.Count] {
				pos[i].X += vel[i].X
				pos[i].Y += vel[i].Y
			}
		}
	}
*/
package silo
