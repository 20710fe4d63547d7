package silo

import "testing"

// TestGraphEdgeSymmetryS3 exercises the S3 scenario: adding Position to
// the empty archetype A0 creates A1, with the add/del edges installed
// symmetrically between the two.
func TestGraphEdgeSymmetryS3(t *testing.T) {
	cfg := DefaultConfig()
	position := NewEntity(1, 0)

	a0 := newArchetype(cfg, 0, nil, nil, nil, nil)
	descs := []CompDesc{{ID: position, Class: ClassGeneric, Properties: CompProperties{Size: 12, Align: 4}}}
	a1 := newArchetype(cfg, 1, []ComponentID{position}, nil, descs, nil)

	installEdge(a0, a1, ClassGeneric, position)

	gotRight, ok := a0.graph.FindEdgeRight(ClassGeneric, position)
	if !ok || gotRight != a1.id {
		t.Errorf("A0.add_edge[(Generic,Position)] = (%d,%v), want (%d,true)", gotRight, ok, a1.id)
	}
	gotLeft, ok := a1.graph.FindEdgeLeft(ClassGeneric, position)
	if !ok || gotLeft != a0.id {
		t.Errorf("A1.del_edge[(Generic,Position)] = (%d,%v), want (%d,true)", gotLeft, ok, a0.id)
	}

	if _, ok := a0.graph.FindEdgeLeft(ClassGeneric, position); ok {
		t.Errorf("A0 should have no del_edge for Position")
	}
	if _, ok := a1.graph.FindEdgeRight(ClassGeneric, position); ok {
		t.Errorf("A1 should have no add_edge for Position")
	}
}

func TestGraphEdgeMissReportsNotFound(t *testing.T) {
	g := newArchetypeGraph()
	if _, ok := g.FindEdgeRight(ClassGeneric, NewEntity(99, 0)); ok {
		t.Errorf("FindEdgeRight on an empty graph reported a hit")
	}
}
