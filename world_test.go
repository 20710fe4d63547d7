package silo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorldNewEntityPlacesInMatchingArchetype(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	vel := RegisterComponent[Velocity](w, ClassGeneric)

	e := w.NewEntity(pos, vel)
	arch := w.ArchetypeFromEntity(e)

	require.True(t, arch.HasGeneric(pos))
	require.True(t, arch.HasGeneric(vel))
	require.Equal(t, 1, arch.Len())
}

func TestWorldDestroyEntityRecyclesID(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)

	e := w.NewEntity(pos)
	w.DestroyEntity(e)

	e2 := w.NewEntity(pos)
	require.Equal(t, e.ID(), e2.ID(), "freed id should be recycled")
	require.NotEqual(t, e.Gen(), e2.Gen(), "recycled id must carry a bumped generation")
}

func TestWorldDestroyEntityStaleHandlePanics(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	e := w.NewEntity(pos)
	w.DestroyEntity(e)

	require.Panics(t, func() { w.DestroyEntity(e) }, "destroying an already-stale handle must assert")
}

func TestWorldAddRemoveComponentRoundTrip(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	vel := RegisterComponent[Velocity](w, ClassGeneric)

	e := w.NewEntity(pos)
	archBefore := w.ArchetypeFromEntity(e)
	require.False(t, archBefore.HasGeneric(vel))

	w.AddComponent(e, vel)
	archAfter := w.ArchetypeFromEntity(e)
	require.True(t, archAfter.HasGeneric(pos))
	require.True(t, archAfter.HasGeneric(vel))
	require.NotEqual(t, archBefore.ID(), archAfter.ID())

	w.RemoveComponent(e, vel)
	archFinal := w.ArchetypeFromEntity(e)
	require.Equal(t, archBefore.ID(), archFinal.ID(), "removing the added component should return to the original archetype")
}

func TestWorldAddComponentPreservesValue(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	vel := RegisterComponent[Velocity](w, ClassGeneric)

	e := w.NewEntity(pos)
	arch := w.ArchetypeFromEntity(e)
	ec := w.entities.Get(e.ID())
	chunk := arch.chunks[ec.ChunkIdx]
	positions := ViewMut[Position](chunk, arch.GenericIndex(pos))
	positions[ec.IdxInChunk] = Position{X: 3, Y: 4}

	w.AddComponent(e, vel)

	ec2 := w.entities.Get(e.ID())
	arch2 := w.archetypes[ec2.ArchetypeID]
	chunk2 := arch2.chunks[ec2.ChunkIdx]
	got := View[Position](chunk2, arch2.GenericIndex(pos))[ec2.IdxInChunk]
	require.Equal(t, Position{X: 3, Y: 4}, got, "moving archetypes must preserve shared component values")
}

func TestWorldAddComponentAlreadyPresentAsserts(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	e := w.NewEntity(pos)

	require.Panics(t, func() { w.AddComponent(e, pos) })
}

func TestWorldRemoveComponentAbsentAsserts(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	vel := RegisterComponent[Velocity](w, ClassGeneric)
	e := w.NewEntity(pos)

	require.Panics(t, func() { w.RemoveComponent(e, vel) })
}

func TestWorldEnableEntityTogglesPartition(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	e := w.NewEntity(pos)
	arch := w.ArchetypeFromEntity(e)
	require.Equal(t, uint32(1), arch.chunks[0].Header.CountEnabled)

	w.EnableEntity(e, false)
	require.Equal(t, uint32(0), arch.chunks[0].Header.CountEnabled)

	w.EnableEntity(e, true)
	require.Equal(t, uint32(1), arch.chunks[0].Header.CountEnabled)
}

func TestWorldLockArchetypePreventsStructuralChange(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	e := w.NewEntity(pos)
	arch := w.ArchetypeFromEntity(e)

	unlock := w.LockArchetype(arch)
	require.Panics(t, func() { w.DestroyEntity(e) }, "structural change on a locked archetype must assert")
	unlock()

	require.NotPanics(t, func() { w.DestroyEntity(e) })
}

func TestWorldGraphEdgeReuseOnSecondEntity(t *testing.T) {
	w := NewWorld(DefaultConfig())
	pos := RegisterComponent[Position](w, ClassGeneric)
	vel := RegisterComponent[Velocity](w, ClassGeneric)

	e1 := w.NewEntity(pos)
	w.AddComponent(e1, vel)
	archAfter1 := w.ArchetypeFromEntity(e1)

	e2 := w.NewEntity(pos)
	w.AddComponent(e2, vel)
	archAfter2 := w.ArchetypeFromEntity(e2)

	require.Equal(t, archAfter1.ID(), archAfter2.ID(), "the lazily-installed edge must be reused, not rebuilt")
}
