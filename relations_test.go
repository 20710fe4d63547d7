package silo

import "testing"

func TestIsRelationGraphTraversal(t *testing.T) {
	g := newIsRelationGraph()
	animal := NewEntity(1, 0)
	dog := NewEntity(2, 0)
	poodle := NewEntity(3, 0)

	g.AddIs(dog, animal)
	g.AddIs(poodle, dog)

	if !g.TraverseIf(animal, func(r Entity) bool { return r == poodle }) {
		t.Errorf("poodle should be reachable transitively from animal")
	}
	if g.TraverseIf(dog, func(r Entity) bool { return r == animal }) {
		t.Errorf("animal (a supertype of dog) must not be reachable from dog")
	}
	if !g.TraverseIf(animal, func(r Entity) bool { return r == animal }) {
		t.Errorf("target itself must count as reachable at distance zero")
	}
}

func TestIsPairHelper(t *testing.T) {
	animal := NewEntity(1, 0)
	p := NewIsPair(animal)
	if !p.IsPair() || p.First() != Is || p.Second() != animal {
		t.Errorf("NewIsPair(animal) = %v, want Pair(Is, animal)", p)
	}
}
