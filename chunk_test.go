package silo

import "testing"

// newTestChunk builds a one-component (uint32) archetype and a single
// chunk from it, sized comfortably larger than any test needs.
func newTestChunk(t *testing.T) (*Archetype, *Chunk, ComponentID) {
	t.Helper()
	cfg := DefaultConfig()
	compV := NewEntity(1, 0)
	descs := []CompDesc{{ID: compV, Class: ClassGeneric, Properties: CompProperties{Size: 4, Align: 4}}}
	arch := newArchetype(cfg, 1, []ComponentID{compV}, nil, descs, nil)
	alloc := NewPooledChunkAllocator(cfg.SmallBlockSize, cfg.LargeBlockSize)
	var version uint32
	chunk := arch.allocChunk(alloc, &version, cfg.DefaultChunkLifespan)
	return arch, chunk, compV
}

// TestChunkSwapRemove exercises the S2 scenario: three entities with a
// uint32 component [10,20,30]; removing index 0 swaps the last live
// entity into its place.
func TestChunkSwapRemove(t *testing.T) {
	_, chunk, compV := newTestChunk(t)
	span := &sliceEntityContainerSpan{rows: make([]EntityContainer, 3)}

	e0, e1, e2 := NewEntity(0, 0), NewEntity(1, 0), NewEntity(2, 0)
	for i, e := range []Entity{e0, e1, e2} {
		idx := chunk.AddEntity(e)
		span.rows[e.id] = EntityContainer{ChunkIdx: 0, IdxInChunk: idx}
		_ = i
	}

	values := ViewMut[uint32](chunk, chunk.GenericIndex(compV))
	values[0], values[1], values[2] = 10, 20, 30

	chunk.RemoveEntity(0, span)

	if chunk.Header.Count != 2 {
		t.Fatalf("Count after remove = %d, want 2", chunk.Header.Count)
	}
	if got := chunk.EntityAt(0); got != e2 {
		t.Errorf("EntityAt(0) = %v, want %v", got, e2)
	}
	if got := chunk.EntityAt(1); got != e1 {
		t.Errorf("EntityAt(1) = %v, want %v", got, e1)
	}

	view := View[uint32](chunk, chunk.GenericIndex(compV))
	if view[0] != 30 || view[1] != 20 {
		t.Errorf("component values after remove = [%d,%d], want [30,20]", view[0], view[1])
	}
	if span.Get(e2.id).IdxInChunk != 0 {
		t.Errorf("displaced entity's IdxInChunk = %d, want 0", span.Get(e2.id).IdxInChunk)
	}
}

func TestChunkAddEntityAssertsOnFullChunk(t *testing.T) {
	cfg := DefaultConfig()
	compV := NewEntity(1, 0)
	descs := []CompDesc{{ID: compV, Class: ClassGeneric, Properties: CompProperties{Size: 4, Align: 4}}}
	cfg.MaxChunkEntities = 2
	arch := newArchetype(cfg, 1, []ComponentID{compV}, nil, descs, nil)
	alloc := NewPooledChunkAllocator(cfg.SmallBlockSize, cfg.LargeBlockSize)
	var version uint32
	chunk := arch.allocChunk(alloc, &version, cfg.DefaultChunkLifespan)

	chunk.AddEntity(NewEntity(0, 0))
	chunk.AddEntity(NewEntity(1, 0))

	defer func() {
		if recover() == nil {
			t.Fatalf("AddEntity past capacity should panic")
		}
	}()
	chunk.AddEntity(NewEntity(2, 0))
}

func TestChunkEnableDisablePartition(t *testing.T) {
	_, chunk, _ := newTestChunk(t)
	span := &sliceEntityContainerSpan{rows: make([]EntityContainer, 4)}

	entities := []Entity{NewEntity(0, 0), NewEntity(1, 0), NewEntity(2, 0), NewEntity(3, 0)}
	for _, e := range entities {
		idx := chunk.AddEntity(e)
		span.rows[e.id] = EntityContainer{IdxInChunk: idx}
	}
	if chunk.Header.CountEnabled != 4 {
		t.Fatalf("CountEnabled after add = %d, want 4 (all start enabled)", chunk.Header.CountEnabled)
	}

	chunk.EnableEntity(1, false, span)
	if chunk.Header.CountEnabled != 3 {
		t.Errorf("CountEnabled after disable = %d, want 3", chunk.Header.CountEnabled)
	}
	if chunk.firstEnabledEntityIndex != 1 {
		t.Errorf("firstEnabledEntityIndex = %d, want 1", chunk.firstEnabledEntityIndex)
	}

	// The disabled entity must now occupy slot 0 (the disabled partition).
	disabledSlot := span.Get(entities[1].id).IdxInChunk
	if disabledSlot != 0 {
		t.Errorf("disabled entity moved to slot %d, want 0", disabledSlot)
	}

	chunk.EnableEntity(0, true, span)
	if chunk.Header.CountEnabled != 4 {
		t.Errorf("CountEnabled after re-enable = %d, want 4", chunk.Header.CountEnabled)
	}
}

func TestChunkEnableEntityAssertsOnLockedChunk(t *testing.T) {
	_, chunk, _ := newTestChunk(t)
	span := &sliceEntityContainerSpan{rows: make([]EntityContainer, 1)}
	e := NewEntity(0, 0)
	idx := chunk.AddEntity(e)
	span.rows[e.id] = EntityContainer{IdxInChunk: idx}

	chunk.Header.Locked = 1
	defer func() {
		if recover() == nil {
			t.Fatalf("EnableEntity on a locked chunk should panic")
		}
	}()
	chunk.EnableEntity(0, false, span)
}

func TestChunkDidChangeWraparoundSafe(t *testing.T) {
	_, chunk, compV := newTestChunk(t)
	chunk.AddEntity(NewEntity(0, 0))
	idx := chunk.GenericIndex(compV)

	snapshot := chunk.genericVersions[idx]
	if chunk.DidChange(ClassGeneric, idx, snapshot) {
		t.Fatalf("DidChange reported a change with no intervening mutation")
	}

	_ = ViewMut[uint32](chunk, idx)
	if !chunk.DidChange(ClassGeneric, idx, snapshot) {
		t.Errorf("DidChange missed a ViewMut access")
	}

	// A version that wraps past the top of uint32 still counts as changed.
	chunk.genericVersions[idx] = ^uint32(0)
	snapshot = chunk.genericVersions[idx]
	_ = ViewMut[uint32](chunk, idx)
	if chunk.genericVersions[idx] != 0 {
		t.Fatalf("test setup: version = %d, want 0 after wrapping", chunk.genericVersions[idx])
	}
	if !chunk.DidChange(ClassGeneric, idx, snapshot) {
		t.Errorf("DidChange missed a ViewMut access across the uint32 wraparound")
	}
}
