package silo

import "github.com/kamstrup/intmap"

// entityToArchetypeMap answers "which archetypes carry component id X",
// the index the query VM's per-term archetype scan walks (spec §4.5).
// Keyed by intmap for the same reason as archetypeTable: this is a
// hot-path id-keyed map, not cold bookkeeping.
type entityToArchetypeMap struct {
	byComponent *intmap.Map[uint64, []ArchetypeID]
}

func newEntityToArchetypeMap() *entityToArchetypeMap {
	return &entityToArchetypeMap{byComponent: intmap.New[uint64, []ArchetypeID](256)}
}

// Add records that archetype id carries component.
func (m *entityToArchetypeMap) Add(component ComponentID, id ArchetypeID) {
	list, _ := m.byComponent.Get(component.Key())
	for _, existing := range list {
		if existing == id {
			return
		}
	}
	m.byComponent.Put(component.Key(), append(list, id))
}

// ArchetypesWith returns every archetype id known to carry component, in
// the order they were added (ascending creation order, since archetypes
// are only ever appended to this list, never removed — an archetype
// dying is a Non-goal this module never exercises).
func (m *entityToArchetypeMap) ArchetypesWith(component ComponentID) []ArchetypeID {
	list, _ := m.byComponent.Get(component.Key())
	return list
}
