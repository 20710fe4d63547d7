package silo

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// The error values below describe conditions that the Chunk and World
// methods treat as programmer errors. No function in this package
// returns them: those methods assert (panic through assertf) instead.

// ErrStorageLocked describes a structural mutation attempted while a
// chunk is locked for external iteration.
var ErrStorageLocked = fmt.Errorf("silo: storage is locked for iteration")

// ComponentExistsError describes a structural change that would add a
// component the entity already carries.
type ComponentExistsError struct {
	Component ComponentID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("silo: component %v already present on entity", e.Component)
}

// ComponentNotFoundError describes a structural change or access that
// targets a component absent from the entity's archetype.
type ComponentNotFoundError struct {
	Component ComponentID
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("silo: component %v not present on entity", e.Component)
}

// UnknownEntityError describes an Entity that has no live slot in the
// EntityContainer span (already destroyed, or never created).
type UnknownEntityError struct {
	Entity Entity
}

func (e UnknownEntityError) Error() string {
	return fmt.Sprintf("silo: entity %v is not live", e.Entity)
}

// assertf is the single funnel for programmer-error (fatal) conditions
// named in spec §7 — out-of-bounds indices, double-remove, structural
// mutation on a locked chunk, unsorted id lists, a mutable view on a
// zero-sized component. There is no recovery path: it panics with a
// traced error, mirroring the teacher's single panic(bark.AddTrace(err))
// call sites.
func assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(bark.AddTrace(fmt.Errorf(format, args...)))
}
