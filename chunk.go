package silo

import "unsafe"

var entitySize = unsafe.Sizeof(Entity{})
var entityAlign = uintptr(unsafe.Alignof(Entity{}))

// ChunkHeader is the bookkeeping that, in a byte-packed port, would live
// at the front of the chunk's memory block (spec §3 Chunk layout item
// 1). It is kept as native Go fields rather than manually packed bytes —
// no example repo in the retrieval pack byte-packs its header either,
// and what the spec's algorithms and invariants actually exercise is the
// component data layout computed in archetype.go, which is preserved
// exactly.
type ChunkHeader struct {
	ArchetypeID       ArchetypeID
	Index             int // this chunk's index within the archetype's chunk list
	Count             uint32
	CountEnabled      uint32
	Capacity          uint32
	LifespanCountdown int32
	Locked            uint32 // structuralChangesLocked (§5)
	SizeClass         sizeClass
	WorldVersion      *uint32 // back-pointer to the owning world's version counter
}

// Chunk is a fixed-size memory block storing up to Capacity entities of
// one archetype, struct-of-arrays per generic component plus one shared
// instance per chunk component (spec §3/§4.1).
type Chunk struct {
	Header ChunkHeader

	block []byte // entity array + generic component arrays + chunk component instances

	genericIDs     []ComponentID
	chunkIDs       []ComponentID
	genericSizes   []uintptr
	chunkSizes     []uintptr
	genericOffsets []uintptr // byte offset into block, per generic component
	chunkOffsets   []uintptr // byte offset into block, per chunk component

	genericVersions []uint32 // one per generic component, bumped on RW access
	chunkVersions   []uint32 // one per chunk component

	entityOffset uintptr // byte offset of the Entity[capacity] array within block

	firstEnabledEntityIndex uint32
}

func versionChanged(stored, since uint32) bool {
	delta := stored - since
	return delta != 0 && delta < 0x8000_0000
}

func (c *Chunk) blockBase() unsafe.Pointer {
	assertf(len(c.block) > 0, "chunk: block not allocated")
	return unsafe.Pointer(&c.block[0])
}

func (c *Chunk) entitiesBase() unsafe.Pointer {
	return unsafe.Add(c.blockBase(), c.entityOffset)
}

// EntityAt returns the entity handle stored at slot idx. idx must be <
// Header.Count.
func (c *Chunk) EntityAt(idx uint32) Entity {
	assertf(idx < c.Header.Count, "chunk.EntityAt: index %d out of bounds (count %d)", idx, c.Header.Count)
	p := (*Entity)(unsafe.Add(c.entitiesBase(), uintptr(idx)*entitySize))
	return *p
}

func (c *Chunk) setEntityAt(idx uint32, e Entity) {
	p := (*Entity)(unsafe.Add(c.entitiesBase(), uintptr(idx)*entitySize))
	*p = e
}

// componentBase returns a pointer to slot 0 of the component at compIdx
// within class.
func (c *Chunk) componentBase(class ComponentClass, compIdx int) unsafe.Pointer {
	var offset uintptr
	if class == ClassGeneric {
		offset = c.genericOffsets[compIdx]
	} else {
		offset = c.chunkOffsets[compIdx]
	}
	return unsafe.Add(c.blockBase(), offset)
}

func (c *Chunk) componentSize(class ComponentClass, compIdx int) uintptr {
	if class == ClassGeneric {
		return c.genericSizes[compIdx]
	}
	return c.chunkSizes[compIdx]
}

func (c *Chunk) bumpVersion(class ComponentClass, compIdx int) {
	if class == ClassGeneric {
		c.genericVersions[compIdx]++
	} else {
		c.chunkVersions[compIdx]++
	}
}

func (c *Chunk) bumpAllVersions() {
	for i := range c.genericVersions {
		c.genericVersions[i]++
	}
	for i := range c.chunkVersions {
		c.chunkVersions[i]++
	}
}

// GenericIndex returns the position of id within this chunk's generic
// component list, or -1.
func (c *Chunk) GenericIndex(id ComponentID) int {
	for i, cid := range c.genericIDs {
		if cid == id {
			return i
		}
	}
	return -1
}

// ChunkIndex returns the position of id within this chunk's chunk
// component list, or -1.
func (c *Chunk) ChunkIndex(id ComponentID) int {
	for i, cid := range c.chunkIDs {
		if cid == id {
			return i
		}
	}
	return -1
}

// DidChange reports whether the component at compIdx in class has been
// mutably accessed since the snapshot version `since`, using the
// wraparound-safe comparison spec §4.1 requires.
func (c *Chunk) DidChange(class ComponentClass, compIdx int, since uint32) bool {
	var v uint32
	if class == ClassGeneric {
		v = c.genericVersions[compIdx]
	} else {
		v = c.chunkVersions[compIdx]
	}
	return versionChanged(v, since)
}

// AddEntity writes e into the next free slot and returns its index.
// Asserts Count < Capacity (spec §4.1).
func (c *Chunk) AddEntity(e Entity) uint32 {
	assertf(c.Header.Count < c.Header.Capacity, "chunk.AddEntity: chunk at capacity (%d)", c.Header.Capacity)
	assertf(c.Header.Locked == 0, "chunk.AddEntity: structural change on locked chunk")
	idx := c.Header.Count
	c.setEntityAt(idx, e)
	c.Header.Count++
	c.Header.CountEnabled++
	c.bumpAllVersions()
	return idx
}

// copyGenericSlot copies every generic component's bytes for entity slot
// src into slot dst (both within this chunk).
func (c *Chunk) copyGenericSlot(src, dst uint32) {
	if src == dst {
		return
	}
	for i, size := range c.genericSizes {
		if size == 0 {
			continue
		}
		base := c.componentBase(ClassGeneric, i)
		srcPtr := unsafe.Add(base, uintptr(src)*size)
		dstPtr := unsafe.Add(base, uintptr(dst)*size)
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
}

// RemoveEntity removes the entity at idx via swap-with-last (spec §4.1,
// S2): the last live slot's entity and component bytes move into idx,
// and the displaced entity's idxInChunk is updated through the
// EntityContainer span.
func (c *Chunk) RemoveEntity(idx uint32, entities EntityContainerSpan) {
	assertf(c.Header.Locked == 0, "chunk.RemoveEntity: structural change on locked chunk")
	assertf(idx < c.Header.Count, "chunk.RemoveEntity: index %d out of bounds (count %d)", idx, c.Header.Count)

	last := c.Header.Count - 1
	if idx != last {
		c.copyGenericSlot(last, idx)
		moved := c.EntityAt(last)
		c.setEntityAt(idx, moved)
		ec := entities.Get(moved.id)
		ec.IdxInChunk = idx
	}
	c.Header.Count--
	if c.firstEnabledEntityIndex > c.Header.Count {
		c.firstEnabledEntityIndex = c.Header.Count
	}
	c.Header.CountEnabled = c.Header.Count - c.firstEnabledEntityIndex
	c.bumpAllVersions()
}

// swapSlots exchanges the entity handle and all generic component bytes
// between two slots and fixes up both entities' idxInChunk.
func (c *Chunk) swapSlots(a, b uint32, entities EntityContainerSpan) {
	if a == b {
		return
	}
	ea := c.EntityAt(a)
	eb := c.EntityAt(b)
	for i, size := range c.genericSizes {
		if size == 0 {
			continue
		}
		base := c.componentBase(ClassGeneric, i)
		pa := unsafe.Add(base, uintptr(a)*size)
		pb := unsafe.Add(base, uintptr(b)*size)
		sa := unsafe.Slice((*byte)(pa), size)
		sb := unsafe.Slice((*byte)(pb), size)
		for k := uintptr(0); k < size; k++ {
			sa[k], sb[k] = sb[k], sa[k]
		}
	}
	c.setEntityAt(a, eb)
	c.setEntityAt(b, ea)
	entities.Get(eb.id).IdxInChunk = a
	entities.Get(ea.id).IdxInChunk = b
}

// EnableEntity toggles the disabled/enabled partition flag for the
// entity at idx, maintaining the invariant that disabled entities occupy
// [0, firstEnabledEntityIndex) and enabled entities occupy
// [firstEnabledEntityIndex, count) (spec §3/§4.1). Versions are not
// bumped — no component data changes.
func (c *Chunk) EnableEntity(idx uint32, enable bool, entities EntityContainerSpan) {
	assertf(c.Header.Locked == 0, "chunk.EnableEntity: structural change on locked chunk")
	assertf(idx < c.Header.Count, "chunk.EnableEntity: index %d out of bounds (count %d)", idx, c.Header.Count)
	if enable {
		assertf(idx < c.firstEnabledEntityIndex, "chunk.EnableEntity: entity %d already enabled", idx)
		boundary := c.firstEnabledEntityIndex - 1
		c.swapSlots(idx, boundary, entities)
		c.firstEnabledEntityIndex--
	} else {
		assertf(idx >= c.firstEnabledEntityIndex, "chunk.EnableEntity: entity %d already disabled", idx)
		boundary := c.firstEnabledEntityIndex
		c.swapSlots(idx, boundary, entities)
		c.firstEnabledEntityIndex++
	}
	c.Header.CountEnabled = c.Header.Count - c.firstEnabledEntityIndex
}

// View returns a read-only span over the typed backing array of the
// generic component at compIdx. Does not bump the component's version.
func View[T any](c *Chunk, compIdx int) []T {
	assertf(c.componentSize(ClassGeneric, compIdx) != 0, "silo.View: component at index %d is zero-sized", compIdx)
	base := c.componentBase(ClassGeneric, compIdx)
	return unsafe.Slice((*T)(base), c.Header.Capacity)
}

// ViewMut returns a mutable span over the typed backing array of the
// generic component at compIdx and bumps its version.
func ViewMut[T any](c *Chunk, compIdx int) []T {
	c.bumpVersion(ClassGeneric, compIdx)
	return View[T](c, compIdx)
}

// ChunkView and ChunkViewMut are the chunk-component analogs of
// View/ViewMut: one shared instance per chunk rather than one per entity.
func ChunkView[T any](c *Chunk, compIdx int) *T {
	assertf(c.componentSize(ClassChunk, compIdx) != 0, "silo.ChunkView: component at index %d is zero-sized", compIdx)
	return (*T)(c.componentBase(ClassChunk, compIdx))
}

func ChunkViewMut[T any](c *Chunk, compIdx int) *T {
	c.bumpVersion(ClassChunk, compIdx)
	return ChunkView[T](c, compIdx)
}
