package silo

import (
	"fmt"
	"strings"
)

// DiagArchetype formats a one-line summary of an archetype's shape and
// occupancy. The core never logs (spec §7); diagnostics are always an
// explicit, formatted value the caller chooses what to do with.
func DiagArchetype(a *Archetype) string {
	var b strings.Builder
	fmt.Fprintf(&b, "archetype %d: generic=%v chunk=%v capacity=%d chunks=%d entities=%d class=%v",
		a.id, a.genericIDs, a.chunkIDs, a.capacity, len(a.chunks), a.Len(), a.class)
	return b.String()
}

// DiagChunk formats a one-line summary of a single chunk's header state.
func DiagChunk(c *Chunk) string {
	return fmt.Sprintf("chunk[%d] archetype=%d count=%d/%d enabled=%d locked=%d lifespan=%d",
		c.Header.Index, c.Header.ArchetypeID, c.Header.Count, c.Header.Capacity,
		c.Header.CountEnabled, c.Header.Locked, c.Header.LifespanCountdown)
}

// DiagEdges formats every graph edge installed on an archetype so far.
func DiagEdges(a *Archetype) string {
	var b strings.Builder
	fmt.Fprintf(&b, "archetype %d edges:\n", a.id)
	for k, dst := range a.graph.addEdge {
		fmt.Fprintf(&b, "  +%s(%v) -> %d\n", k.class, k.id, dst)
	}
	for k, dst := range a.graph.delEdge {
		fmt.Fprintf(&b, "  -%s(%v) -> %d\n", k.class, k.id, dst)
	}
	return b.String()
}

// DiagWorld formats a summary of every archetype currently known to w.
func DiagWorld(w *World) string {
	var b strings.Builder
	fmt.Fprintf(&b, "world: version=%d archetypes=%d entities=%d\n", w.version, len(w.archetypes), len(w.entities.rows))
	for _, a := range w.archetypes {
		b.WriteString(DiagArchetype(a))
		b.WriteByte('\n')
	}
	return b.String()
}
