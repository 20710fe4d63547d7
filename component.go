package silo

import "unsafe"

// ComponentID names a component: an Entity that has been given
// descriptor metadata through a CompDescCache (spec §3/§4).
type ComponentID = Entity

// ComponentClass distinguishes a per-entity (Generic) component from a
// per-chunk, shared-by-all-entities-in-it (Chunk) component (spec §3).
type ComponentClass uint8

const (
	ClassGeneric ComponentClass = iota
	ClassChunk
	numComponentClasses = int(ClassChunk) + 1
)

func (c ComponentClass) String() string {
	if c == ClassChunk {
		return "chunk"
	}
	return "generic"
}

// CtorFn and DtorFn are the ctor/dtor indirection the Design Notes call
// for: plain function values invoked over a contiguous run of n
// same-sized elements starting at ptr, rather than a trait-object
// downcast. A nil fn is simply skipped.
type CtorFn func(ptr unsafe.Pointer, n int)
type DtorFn func(ptr unsafe.Pointer, n int)

// CompProperties is the size/alignment/destructible triple the external
// ComponentCache collaborator (§6) reports for a component id.
type CompProperties struct {
	Size         uintptr
	Align        uintptr
	Destructible bool
}

// CompDesc is the full descriptor record: properties plus the optional
// ctor/dtor and a name for diagnostics (§6 comp_desc).
type CompDesc struct {
	ID         ComponentID
	Name       string
	Class      ComponentClass
	Properties CompProperties
	Ctor       CtorFn
	Dtor       DtorFn

	// bitIndex is the dense, registration-order index used by Bloom-style
	// queryMask/matcherHash bitsets — an accelerator, never identity.
	bitIndex uint32
}

// CompDescCache is the external ComponentCache collaborator (§6):
// id -> {size, align, destructible, ctor/dtor, name}.
type CompDescCache interface {
	CompDesc(id ComponentID) (CompDesc, bool)
}
