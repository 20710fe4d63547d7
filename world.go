package silo

import (
	"reflect"
	"sort"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// World is the minimal substrate this module ships alongside the core:
// spec §1 treats the world container as an external collaborator, but a
// standalone module needs *some* concrete implementation to be testable
// against real collaborators rather than mocks (SPEC_FULL.md §4.6).
// World supplies everything spec §6 names the world as providing:
// world_version, archetype_from_entity, entity_from_id and
// span<EntityContainer> as its own methods, and the component descriptor
// cache, the chunk allocator and as_relations_trav_if through the
// collaborators it owns (descs, alloc, relations).
type World struct {
	cfg       config
	descs     *reflectDescCache
	alloc     ChunkAllocator
	relations *isRelationGraph

	version uint32

	// locks mirrors the teacher's storage.locks/AddLock/RemoveLock
	// pattern: a sticky, per-archetype-bucket accelerator recording
	// which archetypes have recently been locked for iteration. It is a
	// diagnostic aid, not the enforcement mechanism — that is each
	// chunk's own Header.Locked counter (spec §5).
	locks mask.Mask256

	archetypes []*Archetype
	lookup     *archetypeTable
	entityMap  *entityToArchetypeMap

	entities sliceEntityContainerSpan
	freeIDs  []uint32
}

// NewWorld builds an empty world with the root (empty-signature)
// archetype already created, per spec §3: "the root archetype (id 0,
// empty signature) is a degenerate case."
func NewWorld(cfg config) *World {
	w := &World{
		cfg:       cfg,
		descs:     NewReflectDescCache(),
		alloc:     NewPooledChunkAllocator(cfg.SmallBlockSize, cfg.LargeBlockSize),
		relations: newIsRelationGraph(),
		lookup:    newArchetypeTable(),
		entityMap: newEntityToArchetypeMap(),
	}
	root := newArchetype(w.cfg, rootArchetypeID, nil, nil, nil, nil)
	w.archetypes = append(w.archetypes, root)
	w.lookup.Insert(root)
	return w
}

// RegisterComponent derives T's descriptor via reflection and assigns
// it a fresh ComponentID (SPEC_FULL.md §4.6, grounded on delaneyj-arche's
// reflect-based component sizing).
func RegisterComponent[T any](w *World, class ComponentClass) ComponentID {
	return RegisterComponentWithLifecycle[T](w, class, nil, nil)
}

// RegisterComponentWithLifecycle is RegisterComponent plus optional
// ctor/dtor function values, invoked per spec §9's "function pointers
// plus a size" resolution of the ctor/dtor indirection.
func RegisterComponentWithLifecycle[T any](w *World, class ComponentClass, ctor CtorFn, dtor DtorFn) ComponentID {
	var zero T
	typ := reflect.TypeOf(zero)
	return w.descs.register(typ.String(), typ, class, ctor, dtor)
}

// Archetype returns the archetype with the given id.
func (w *World) Archetype(id ArchetypeID) *Archetype {
	assertf(int(id) < len(w.archetypes), "World.Archetype: id %d out of range (%d archetypes)", id, len(w.archetypes))
	return w.archetypes[id]
}

// Archetypes returns every archetype the world has created, in creation
// order — the "allArchetypes" span §6's VirtualMachine::compile expects.
func (w *World) Archetypes() []*Archetype { return w.archetypes }

// ArchetypeFromEntity implements the §6 archetype_from_entity
// collaborator: nil if e is a stale handle.
func (w *World) ArchetypeFromEntity(e Entity) *Archetype {
	ec := w.entities.Get(e.id)
	if ec.Gen != e.gen {
		return nil
	}
	return w.archetypes[ec.ArchetypeID]
}

// EntityFromID implements the §6 entity_from_id collaborator,
// reconstructing the current generation for a raw id.
func (w *World) EntityFromID(id uint32) Entity {
	ec := w.entities.Get(id)
	return NewEntity(id, ec.Gen)
}

// WorldVersion returns the address of the world's version counter — the
// back-pointer every chunk header stores (spec §3 Chunk layout item 1).
func (w *World) WorldVersion() *uint32 { return &w.version }

func (w *World) bumpVersion() { w.version++ }

// Entities exposes the world's dense entity table as the span the core
// reads/writes through (spec §6 span<EntityContainer>).
func (w *World) Entities() EntityContainerSpan { return &w.entities }

// AddIsRelation records that child "is" parent for transitive Is-query
// matching (spec §4.5.4 cmp_ids_is).
func (w *World) AddIsRelation(child, parent Entity) {
	w.relations.AddIs(child, parent)
}

// LockArchetype marks every chunk of a as locked against structural
// change (spec §5: "incremented while the chunk is being iterated
// externally"), mirroring the teacher's storage.AddLock. Returns an
// unlock function the caller must call when iteration ends.
func (w *World) LockArchetype(a *Archetype) func() {
	for _, c := range a.chunks {
		c.Header.Locked++
	}
	w.locks.Mark(uint32(a.id) & 0xFF)
	return func() {
		for _, c := range a.chunks {
			assertf(c.Header.Locked > 0, "World.LockArchetype: unlock called more times than lock")
			c.Header.Locked--
		}
	}
}

func (w *World) allocEntitySlot() (id uint32, gen uint32) {
	if n := len(w.freeIDs); n > 0 {
		id = w.freeIDs[n-1]
		w.freeIDs = w.freeIDs[:n-1]
		return id, w.entities.rows[id].Gen
	}
	id = uint32(len(w.entities.rows))
	w.entities.rows = append(w.entities.rows, EntityContainer{})
	return id, 0
}

// NewEntity creates an entity with the given components and places it
// in the archetype matching that exact signature, creating the
// archetype if none exists yet.
func (w *World) NewEntity(components ...ComponentID) Entity {
	generic, chunkComps := w.splitByClass(components)
	arch := w.findOrCreateArchetype(generic, chunkComps)
	chunk := arch.focFreeChunk(w.alloc, &w.version, w.cfg.DefaultChunkLifespan)

	id, gen := w.allocEntitySlot()
	e := NewEntity(id, gen)
	idx := chunk.AddEntity(e)
	w.runCtorsForAll(chunk, idx, arch)

	*w.entities.Get(id) = EntityContainer{
		ArchetypeID: arch.id,
		ChunkIdx:    uint32(chunk.Header.Index),
		IdxInChunk:  idx,
		Gen:         gen,
	}
	w.bumpVersion()
	return e
}

// DestroyEntity removes e from its chunk and recycles its id for
// reuse, bumping the generation so stale handles are detectable.
func (w *World) DestroyEntity(e Entity) {
	ec := w.entities.Get(e.id)
	assertf(ec.Gen == e.gen, "World.DestroyEntity: stale entity handle %v", e)

	arch := w.archetypes[ec.ArchetypeID]
	chunk := arch.chunks[ec.ChunkIdx]
	w.runDtorsForAll(chunk, ec.IdxInChunk, arch)
	chunk.RemoveEntity(ec.IdxInChunk, &w.entities)

	ec.Gen++
	w.freeIDs = append(w.freeIDs, e.id)
	w.bumpVersion()
}

// EnableEntity toggles e's enabled/disabled partition membership.
func (w *World) EnableEntity(e Entity, enable bool) {
	ec := w.entities.Get(e.id)
	assertf(ec.Gen == e.gen, "World.EnableEntity: stale entity handle %v", e)
	arch := w.archetypes[ec.ArchetypeID]
	chunk := arch.chunks[ec.ChunkIdx]
	chunk.EnableEntity(ec.IdxInChunk, enable, &w.entities)
	ec.Disabled = !enable
}

// AddComponent moves e into the archetype reached by adding comp,
// following or lazily installing the graph edge (spec §4.4/§9).
func (w *World) AddComponent(e Entity, comp ComponentID) {
	ec := w.entities.Get(e.id)
	assertf(ec.Gen == e.gen, "World.AddComponent: stale entity handle %v", e)
	from := w.archetypes[ec.ArchetypeID]
	assertf(!from.HasGeneric(comp) && !from.HasChunk(comp), "World.AddComponent: entity %v already has component %v", e, comp)

	class := w.descOf(comp).Class
	dst, ok := w.followEdgeRight(from, class, comp)
	if !ok {
		generic := append([]ComponentID(nil), from.genericIDs...)
		chunkComps := append([]ComponentID(nil), from.chunkIDs...)
		if class == ClassGeneric {
			generic = append(generic, comp)
		} else {
			chunkComps = append(chunkComps, comp)
		}
		dst = w.findOrCreateArchetype(generic, chunkComps)
		installEdge(from, dst, class, comp)
	}
	w.moveEntity(e, ec, from, dst)
}

// RemoveComponent moves e into the archetype reached by removing comp.
func (w *World) RemoveComponent(e Entity, comp ComponentID) {
	ec := w.entities.Get(e.id)
	assertf(ec.Gen == e.gen, "World.RemoveComponent: stale entity handle %v", e)
	from := w.archetypes[ec.ArchetypeID]
	assertf(from.HasGeneric(comp) || from.HasChunk(comp), "World.RemoveComponent: entity %v lacks component %v", e, comp)

	class := w.descOf(comp).Class
	dst, ok := w.followEdgeLeft(from, class, comp)
	if !ok {
		dst = w.findOrCreateArchetype(removeID(from.genericIDs, comp), removeID(from.chunkIDs, comp))
		installEdge(dst, from, class, comp)
	}
	w.moveEntity(e, ec, from, dst)
}

func (w *World) followEdgeRight(from *Archetype, class ComponentClass, comp ComponentID) (*Archetype, bool) {
	id, ok := from.graph.FindEdgeRight(class, comp)
	if !ok {
		return nil, false
	}
	return w.archetypes[id], true
}

func (w *World) followEdgeLeft(from *Archetype, class ComponentClass, comp ComponentID) (*Archetype, bool) {
	id, ok := from.graph.FindEdgeLeft(class, comp)
	if !ok {
		return nil, false
	}
	return w.archetypes[id], true
}

// moveEntity relocates an entity from its current chunk into a chunk of
// dst, copying shared components, running ctors for newly-gained
// components and dtors for newly-lost ones.
func (w *World) moveEntity(e Entity, ec *EntityContainer, from, dst *Archetype) {
	if from.id == dst.id {
		return
	}
	srcChunk := from.chunks[ec.ChunkIdx]
	srcIdx := ec.IdxInChunk
	dstChunk := dst.focFreeChunk(w.alloc, &w.version, w.cfg.DefaultChunkLifespan)
	dstIdx := dstChunk.AddEntity(e)

	copySharedComponents(dstChunk, dstIdx, srcChunk, srcIdx)
	w.runCtorsForAdded(dstChunk, dstIdx, from, dst)
	w.runDtorsForRemoved(srcChunk, srcIdx, from, dst)

	srcChunk.RemoveEntity(srcIdx, &w.entities)

	ec.ArchetypeID = dst.id
	ec.ChunkIdx = uint32(dstChunk.Header.Index)
	ec.IdxInChunk = dstIdx
	w.bumpVersion()
}

// copySharedComponents copies every generic component present in both
// chunks' archetypes (by id, not position — the two archetypes differ
// by exactly one component during a structural change).
func copySharedComponents(dst *Chunk, dstIdx uint32, src *Chunk, srcIdx uint32) {
	for i, id := range dst.genericIDs {
		size := dst.genericSizes[i]
		if size == 0 {
			continue
		}
		si := src.GenericIndex(id)
		if si < 0 {
			continue
		}
		srcPtr := unsafe.Add(src.componentBase(ClassGeneric, si), uintptr(srcIdx)*size)
		dstPtr := unsafe.Add(dst.componentBase(ClassGeneric, i), uintptr(dstIdx)*size)
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
}

func (w *World) runCtorsForAll(chunk *Chunk, idx uint32, arch *Archetype) {
	for i, id := range arch.genericIDs {
		desc := w.descOf(id)
		if desc.Ctor == nil || chunk.genericSizes[i] == 0 {
			continue
		}
		ptr := unsafe.Add(chunk.componentBase(ClassGeneric, i), uintptr(idx)*chunk.genericSizes[i])
		desc.Ctor(ptr, 1)
	}
}

func (w *World) runDtorsForAll(chunk *Chunk, idx uint32, arch *Archetype) {
	for i, id := range arch.genericIDs {
		desc := w.descOf(id)
		if desc.Dtor == nil || chunk.genericSizes[i] == 0 {
			continue
		}
		ptr := unsafe.Add(chunk.componentBase(ClassGeneric, i), uintptr(idx)*chunk.genericSizes[i])
		desc.Dtor(ptr, 1)
	}
}

func (w *World) runCtorsForAdded(dstChunk *Chunk, idx uint32, from, dst *Archetype) {
	for i, id := range dst.genericIDs {
		if from.HasGeneric(id) {
			continue
		}
		desc := w.descOf(id)
		if desc.Ctor == nil || dstChunk.genericSizes[i] == 0 {
			continue
		}
		ptr := unsafe.Add(dstChunk.componentBase(ClassGeneric, i), uintptr(idx)*dstChunk.genericSizes[i])
		desc.Ctor(ptr, 1)
	}
}

func (w *World) runDtorsForRemoved(srcChunk *Chunk, idx uint32, from, dst *Archetype) {
	for i, id := range from.genericIDs {
		if dst.HasGeneric(id) {
			continue
		}
		desc := w.descOf(id)
		if desc.Dtor == nil || srcChunk.genericSizes[i] == 0 {
			continue
		}
		ptr := unsafe.Add(srcChunk.componentBase(ClassGeneric, i), uintptr(idx)*srcChunk.genericSizes[i])
		desc.Dtor(ptr, 1)
	}
}

// findOrCreateArchetype resolves the archetype for a (possibly
// unsorted, possibly duplicate-laden) pair of id lists, creating it if
// no archetype with that exact signature exists yet.
func (w *World) findOrCreateArchetype(generic, chunkComps []ComponentID) *Archetype {
	generic = sortDedup(generic)
	chunkComps = sortDedup(chunkComps)

	key := NewSignatureKey(generic, chunkComps)
	if a, ok := w.lookup.Resolve(key); ok {
		return a
	}

	id := ArchetypeID(len(w.archetypes))
	a := newArchetype(w.cfg, id, generic, chunkComps, w.descsFor(generic), w.descsFor(chunkComps))
	w.archetypes = append(w.archetypes, a)
	w.lookup.Insert(a)
	for _, cid := range generic {
		w.entityMap.Add(cid, id)
	}
	for _, cid := range chunkComps {
		w.entityMap.Add(cid, id)
	}
	return a
}

// descOf resolves a component id's descriptor. A relationship pair
// (spec §3: "the low half may encode a pair") is never registered
// through RegisterComponent — it is synthesized from two existing
// entities — so it is treated as a zero-sized generic tag rather than
// looked up in the descriptor cache.
func (w *World) descOf(id ComponentID) CompDesc {
	if id.IsPair() {
		return CompDesc{ID: id, Name: id.String(), Class: ClassGeneric}
	}
	return w.descs.mustDesc(id)
}

func (w *World) descsFor(ids []ComponentID) []CompDesc {
	if len(ids) == 0 {
		return nil
	}
	out := make([]CompDesc, len(ids))
	for i, id := range ids {
		out[i] = w.descOf(id)
	}
	return out
}

func (w *World) splitByClass(ids []ComponentID) (generic, chunkComps []ComponentID) {
	for _, id := range ids {
		if w.descOf(id).Class == ClassChunk {
			chunkComps = append(chunkComps, id)
		} else {
			generic = append(generic, id)
		}
	}
	return generic, chunkComps
}

func sortDedup(ids []ComponentID) []ComponentID {
	if len(ids) == 0 {
		return nil
	}
	out := append([]ComponentID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	dedup := out[:1]
	for _, id := range out[1:] {
		if id != dedup[len(dedup)-1] {
			dedup = append(dedup, id)
		}
	}
	return dedup
}

func removeID(ids []ComponentID, target ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Defrag compacts archetype id's chunks (spec §4.3), freeing any chunk
// that emptied out in the process.
func (w *World) Defrag(id ArchetypeID, maxEntities int) int {
	arch := w.Archetype(id)
	moved, toRemove := arch.defrag(maxEntities, &w.entities)
	for _, c := range toRemove {
		arch.removeChunk(w.alloc, c)
	}
	return moved
}

// NewQuery builds a query from its term lists (see package-level
// NewQuery); provided as a method for callers holding only a *World.
func (w *World) NewQuery(terms Terms) *Query {
	return NewQuery(terms)
}

// Exec runs q against the world's current archetype set (spec §4.5.3).
func (w *World) Exec(q *Query) *MatchingCtx {
	byID := func(id ArchetypeID) *Archetype {
		if int(id) >= len(w.archetypes) {
			return nil
		}
		return w.archetypes[id]
	}
	return q.exec(w.archetypes, byID, w.entityMap, w.relations, w.descs)
}
