package silo

import (
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// ArchetypeID identifies an archetype; 0 is the degenerate root
// (empty-signature) archetype (spec §4.2).
type ArchetypeID uint32

const rootArchetypeID ArchetypeID = 0

// Archetype is the unique signature of an entity: a sorted, deduplicated
// list of generic component ids and a sorted, deduplicated list of chunk
// component ids (spec §3). It owns its chunk list and the graph edges
// linking it to archetypes one component away.
type Archetype struct {
	id ArchetypeID

	genericIDs []ComponentID
	chunkIDs   []ComponentID

	genericDescs []CompDesc
	chunkDescs   []CompDesc

	capacity       uint32
	chunkDataBytes uintptr
	class          sizeClass
	entityOffset   uintptr
	genericOffsets []uintptr
	chunkOffsets   []uintptr

	genericHash  uint64
	chunkHash    uint64
	lookupHash   uint64
	matcherHash0 uint64 // generic-class matcher hash
	matcherHash1 uint64 // chunk-class matcher hash
	queryMask    mask.Mask

	// allIDsSorted is the merge of genericIDs and chunkIDs, kept sorted,
	// for the query VM's match_inter to walk against (spec §4.5.3 "the
	// archetype's sorted ids_view()" — the view doesn't distinguish
	// component class).
	allIDsSorted []ComponentID

	chunks []*Chunk

	graph ArchetypeGraph
}

// allIDs returns the archetype's full sorted component id list (generic
// and chunk combined) — the "ids_view()" the query VM's comparators scan.
func (a *Archetype) allIDs() []ComponentID { return a.allIDsSorted }

// ID returns the archetype's identifier.
func (a *Archetype) ID() ArchetypeID { return a.id }

// GenericIDs and ChunkIDs return the sorted component id lists that
// define this archetype's signature.
func (a *Archetype) GenericIDs() []ComponentID { return a.genericIDs }
func (a *Archetype) ChunkIDs() []ComponentID   { return a.chunkIDs }

// Capacity returns the number of entities each chunk of this archetype
// can hold.
func (a *Archetype) Capacity() uint32 { return a.capacity }

// Chunks returns the archetype's dense chunk list.
func (a *Archetype) Chunks() []*Chunk { return a.chunks }

// Len returns the total live entity count across all chunks.
func (a *Archetype) Len() int {
	n := 0
	for _, c := range a.chunks {
		n += int(c.Header.Count)
	}
	return n
}

// GenericIndex returns the position of id in the archetype's sorted
// generic id list, or -1.
func (a *Archetype) GenericIndex(id ComponentID) int {
	return indexOfSorted(a.genericIDs, id)
}

// ChunkIndex returns the position of id in the archetype's sorted chunk
// id list, or -1.
func (a *Archetype) ChunkIndex(id ComponentID) int {
	return indexOfSorted(a.chunkIDs, id)
}

// mergeSortedIDs merges two already-sorted, already-deduplicated id
// lists into one sorted list (generic and chunk ids never overlap,
// since a component is registered into exactly one class).
func mergeSortedIDs(a, b []ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Key() <= b[j].Key() {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func indexOfSorted(ids []ComponentID, id ComponentID) int {
	for i, cid := range ids {
		if cid == id {
			return i
		}
	}
	return -1
}

// HasGeneric / HasChunk report membership in the respective id list.
func (a *Archetype) HasGeneric(id ComponentID) bool { return a.GenericIndex(id) >= 0 }
func (a *Archetype) HasChunk(id ComponentID) bool   { return a.ChunkIndex(id) >= 0 }

// layoutResult is the outcome of the §4.2 capacity solve for one block
// size target.
type layoutResult struct {
	capacity       uint32
	chunkDataBytes uintptr
	entityOffset   uintptr
	genericOffsets []uintptr
	chunkOffsets   []uintptr
	fits           bool
}

// solveLayout implements spec §4.2 steps 1-2: given sorted descriptor
// lists and a target block size, find the maximum entity count N such
// that header + reserved bytes + entity array + component arrays fit
// within blockUsable, converging in at most two iterations.
func solveLayout(cfg config, generic, chunkComps []CompDesc, blockUsable int, hardCap uint32) layoutResult {
	entityDataOffset := uintptr(cfg.HeaderSize + cfg.ReservedBytes)

	var sumGeneric uintptr
	for _, d := range generic {
		sumGeneric += d.Properties.Size
	}
	var sumChunk uintptr
	for _, d := range chunkComps {
		sumChunk += d.Properties.Size
	}

	perEntity := sumGeneric + entitySize
	if perEntity == 0 {
		perEntity = 1
	}

	numerator := int64(blockUsable) - int64(entityDataOffset) - int64(sumChunk) - 1
	n := uint32(0)
	if numerator > 0 {
		n = uint32(numerator / int64(perEntity))
	}
	if n > hardCap {
		n = hardCap
	}

	var res layoutResult
	for iter := 0; iter < 2; iter++ {
		offset := entityDataOffset
		offset = alignUp(offset, entityAlign)
		entityOffset := offset
		offset += uintptr(n) * entitySize

		genericOffsets := make([]uintptr, len(generic))
		for i, d := range generic {
			if d.Properties.Size == 0 {
				genericOffsets[i] = 0
				continue
			}
			offset = alignUp(offset, d.Properties.Align)
			genericOffsets[i] = offset
			offset += d.Properties.Size * uintptr(n)
		}

		chunkOffsets := make([]uintptr, len(chunkComps))
		for i, d := range chunkComps {
			if d.Properties.Size == 0 {
				chunkOffsets[i] = 0
				continue
			}
			offset = alignUp(offset, d.Properties.Align)
			chunkOffsets[i] = offset
			offset += d.Properties.Size
		}

		res = layoutResult{
			capacity:       n,
			chunkDataBytes: offset,
			entityOffset:   entityOffset,
			genericOffsets: genericOffsets,
			chunkOffsets:   chunkOffsets,
		}

		if int(offset) <= blockUsable {
			res.fits = true
			return res
		}

		overflow := int64(offset) - int64(blockUsable)
		dec := uint32((overflow + int64(perEntity) - 1) / int64(perEntity))
		if dec == 0 {
			dec = 1
		}
		if dec >= n {
			n = 0
		} else {
			n -= dec
		}
	}
	return res
}

func alignUp(offset, align uintptr) uintptr {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) / align * align
}

// computeArchetypeLayout runs the full §4.2 procedure: solve against the
// large block, and if the result fits comfortably within the small/large
// midpoint, re-solve against the small block to save memory (step 3),
// then cap at the hard per-chunk maximum (step 4).
func computeArchetypeLayout(cfg config, generic, chunkComps []CompDesc, isRoot bool) (layoutResult, sizeClass) {
	hardCap := cfg.MaxChunkEntities
	if isRoot {
		hardCap = cfg.MaxChunkEntitiesRoot
	}

	large := solveLayout(cfg, generic, chunkComps, cfg.LargeBlockSize, hardCap)
	if int(large.chunkDataBytes) <= cfg.midpoint() {
		small := solveLayout(cfg, generic, chunkComps, cfg.SmallBlockSize, hardCap)
		if small.fits {
			return small, sizeClassSmall
		}
	}
	return large, sizeClassLarge
}

// fnvHash produces a 64-bit digest over a sorted id list — an
// accelerator for the lookup/matcher hashes (spec §3: "hashes are an
// accelerator, not the identity").
func fnvHash(ids []ComponentID) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, id := range ids {
		k := id.Key()
		for i := 0; i < 8; i++ {
			h ^= (k >> (8 * i)) & 0xFF
			h *= prime64
		}
	}
	return h
}

// buildQueryMask folds every component's dense bit index into a
// Bloom-style mask used by the ALL_Simple op for early rejection
// (optimization only; correctness must hold with it disabled, spec §9).
func buildQueryMask(descs []CompDesc) mask.Mask {
	var m mask.Mask
	for _, d := range descs {
		m.Mark(d.bitIndex)
	}
	return m
}

// newArchetype allocates and lays out a fresh Archetype for the given
// sorted, deduplicated id lists. genericDescs/chunkDescs must already be
// sorted the same way as genericIDs/chunkIDs.
func newArchetype(cfg config, id ArchetypeID, genericIDs, chunkIDs []ComponentID, genericDescs, chunkDescs []CompDesc) *Archetype {
	assertSorted(genericIDs, "generic")
	assertSorted(chunkIDs, "chunk")

	layout, class := computeArchetypeLayout(cfg, genericDescs, chunkDescs, id == rootArchetypeID)

	allIDsSorted := mergeSortedIDs(genericIDs, chunkIDs)

	allDescs := make([]CompDesc, 0, len(genericDescs)+len(chunkDescs))
	allDescs = append(allDescs, genericDescs...)
	allDescs = append(allDescs, chunkDescs...)

	a := &Archetype{
		id:             id,
		genericIDs:     genericIDs,
		chunkIDs:       chunkIDs,
		genericDescs:   genericDescs,
		chunkDescs:     chunkDescs,
		capacity:       layout.capacity,
		chunkDataBytes: layout.chunkDataBytes,
		class:          class,
		entityOffset:   layout.entityOffset,
		genericOffsets: layout.genericOffsets,
		chunkOffsets:   layout.chunkOffsets,
		genericHash:    fnvHash(genericIDs),
		chunkHash:      fnvHash(chunkIDs),
		queryMask:      buildQueryMask(allDescs),
		allIDsSorted:   allIDsSorted,
		graph:          newArchetypeGraph(),
	}
	a.lookupHash = a.genericHash*31 + a.chunkHash
	a.matcherHash0 = fnvHash(genericIDs)
	a.matcherHash1 = fnvHash(chunkIDs)
	return a
}

func assertSorted(ids []ComponentID, label string) {
	for i := 1; i < len(ids); i++ {
		assertf(ids[i-1].Key() < ids[i].Key(), "archetype: %s id list not sorted/deduplicated", label)
	}
}

// allocChunk asks alloc for a fresh block sized for this archetype's
// class, wires up the header and per-component offsets/versions, and
// appends it to the chunk list.
func (a *Archetype) allocChunk(alloc ChunkAllocator, worldVersion *uint32, lifespan int32) *Chunk {
	block := alloc.Alloc(a.class)
	c := &Chunk{
		Header: ChunkHeader{
			ArchetypeID:       a.id,
			Index:             len(a.chunks),
			Capacity:          a.capacity,
			LifespanCountdown: lifespan,
			SizeClass:         a.class,
			WorldVersion:      worldVersion,
		},
		block:           block,
		genericIDs:      a.genericIDs,
		chunkIDs:        a.chunkIDs,
		genericSizes:    sizesOf(a.genericDescs),
		chunkSizes:      sizesOf(a.chunkDescs),
		genericOffsets:  a.genericOffsets,
		chunkOffsets:    a.chunkOffsets,
		genericVersions: make([]uint32, len(a.genericIDs)),
		chunkVersions:   make([]uint32, len(a.chunkIDs)),
		entityOffset:    a.entityOffset,
	}
	a.chunks = append(a.chunks, c)
	return c
}

func sizesOf(descs []CompDesc) []uintptr {
	sizes := make([]uintptr, len(descs))
	for i, d := range descs {
		sizes[i] = d.Properties.Size
	}
	return sizes
}

// focFreeChunk implements spec §4.3 find-or-create: prefer the first
// partially-full chunk (fills partials first to aid defrag), else reuse
// an empty chunk, else allocate a fresh one.
func (a *Archetype) focFreeChunk(alloc ChunkAllocator, worldVersion *uint32, lifespan int32) *Chunk {
	var empty *Chunk
	for _, c := range a.chunks {
		if c.Header.Count > 0 && c.Header.Count < c.Header.Capacity {
			return c
		}
		if c.Header.Count == 0 && empty == nil {
			empty = c
		}
	}
	if empty != nil {
		return empty
	}
	return a.allocChunk(alloc, worldVersion, lifespan)
}

// removeChunk frees a chunk's memory and swap-back-erases it from the
// archetype's dense chunk list, fixing up the displaced chunk's index.
func (a *Archetype) removeChunk(alloc ChunkAllocator, c *Chunk) {
	idx := c.Header.Index
	assertf(idx >= 0 && idx < len(a.chunks) && a.chunks[idx] == c, "archetype.removeChunk: chunk not owned by this archetype")
	alloc.Free(c.block)
	last := len(a.chunks) - 1
	a.chunks[idx] = a.chunks[last]
	a.chunks[idx].Header.Index = idx
	a.chunks[last] = nil
	a.chunks = a.chunks[:last]
}

// defrag implements spec §4.3: two cursors into the chunk list, moving
// entities from the back into partially-full chunks at the front until
// front==back or the entity budget is exhausted. Does not bump the world
// version (logically a no-op for components/entities). Source chunks
// that empty out are appended to outChunksToRemove rather than removed
// immediately, since the caller may still be iterating the chunk list.
func (a *Archetype) defrag(maxEntities int, entities EntityContainerSpan) (moved int, outChunksToRemove []*Chunk) {
	front, back := 0, len(a.chunks)-1
	for front < len(a.chunks) && (a.chunks[front].Header.Count == 0 || a.chunks[front].Header.Count >= a.chunks[front].Header.Capacity) {
		if a.chunks[front].Header.Count >= a.chunks[front].Header.Capacity {
			front++
			continue
		}
		break
	}

	for moved < maxEntities && front < back {
		dst := a.chunks[front]
		if dst.Header.Count >= dst.Header.Capacity {
			front++
			continue
		}
		src := a.chunks[back]
		if src.Header.Count == 0 {
			back--
			continue
		}

		srcIdx := src.Header.Count - 1
		e := src.EntityAt(srcIdx)
		dstIdx := dst.AddEntity(e)
		copyCrossChunk(dst, dstIdx, src, srcIdx)

		ec := entities.Get(e.id)
		ec.ChunkIdx = uint32(dst.Header.Index)
		ec.IdxInChunk = dstIdx

		src.Header.Count--
		if src.firstEnabledEntityIndex > src.Header.Count {
			src.firstEnabledEntityIndex = src.Header.Count
		}
		src.Header.CountEnabled = src.Header.Count - src.firstEnabledEntityIndex
		src.bumpAllVersions()

		moved++

		if src.Header.Count == 0 {
			outChunksToRemove = append(outChunksToRemove, src)
			back--
		}
		if dst.Header.Count >= dst.Header.Capacity {
			front++
		}
	}
	return moved, outChunksToRemove
}

// copyCrossChunk copies every generic component's bytes for entity slot
// srcIdx in src into slot dstIdx in dst. Both chunks belong to the same
// archetype so component lists/sizes/offsets line up positionally.
func copyCrossChunk(dst *Chunk, dstIdx uint32, src *Chunk, srcIdx uint32) {
	for i, size := range dst.genericSizes {
		if size == 0 {
			continue
		}
		srcBase := src.componentBase(ClassGeneric, i)
		dstBase := dst.componentBase(ClassGeneric, i)
		srcPtr := unsafe.Add(srcBase, uintptr(srcIdx)*size)
		dstPtr := unsafe.Add(dstBase, uintptr(dstIdx)*size)
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
}
