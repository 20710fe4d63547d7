package silo

import "github.com/kamstrup/intmap"

// LookupKey is the tagged-variant argument to archetypeTable.Resolve
// (spec §9 Design Notes): either a brand-new signature that may or may
// not already have an archetype, or a direct reference to an archetype
// already known to exist. Exactly one of the two variants is set.
type LookupKey struct {
	newSig   *newSignature
	existing *Archetype
}

type newSignature struct {
	genericIDs []ComponentID
	chunkIDs   []ComponentID
	hash       uint64
}

// NewSignatureKey builds a LookupKey from a candidate (not yet known to
// exist) sorted id signature.
func NewSignatureKey(genericIDs, chunkIDs []ComponentID) LookupKey {
	return LookupKey{newSig: &newSignature{
		genericIDs: genericIDs,
		chunkIDs:   chunkIDs,
		hash:       fnvHash(genericIDs)*31 + fnvHash(chunkIDs),
	}}
}

// ExistingKey builds a LookupKey that directly names an archetype
// already known to the caller (e.g. while walking a graph edge).
func ExistingKey(a *Archetype) LookupKey {
	return LookupKey{existing: a}
}

// Equal reports whether two keys denote the same signature, dispatching
// on whichever variant is populated.
func (k LookupKey) Equal(other LookupKey) bool {
	switch {
	case k.existing != nil && other.existing != nil:
		return k.existing.id == other.existing.id
	case k.existing != nil && other.newSig != nil:
		return sameIDs(k.existing.genericIDs, other.newSig.genericIDs) && sameIDs(k.existing.chunkIDs, other.newSig.chunkIDs)
	case k.newSig != nil && other.existing != nil:
		return other.Equal(k)
	case k.newSig != nil && other.newSig != nil:
		return sameIDs(k.newSig.genericIDs, other.newSig.genericIDs) && sameIDs(k.newSig.chunkIDs, other.newSig.chunkIDs)
	}
	return false
}

func (k LookupKey) hash() uint64 {
	if k.existing != nil {
		return k.existing.lookupHash
	}
	return k.newSig.hash
}

func sameIDs(a, b []ComponentID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// archetypeTable is the world's lookupHash -> *Archetype index (spec
// §4.2/§4.4: "hashes are an accelerator, not the identity" — a hash
// collision falls back to an exact id-list comparison across every
// archetype in the bucket, never a silent misroute). Grounded on
// plus3-ooftn's ecs/archetype.go, which keys its hot entity-ref table
// with kamstrup/intmap rather than the builtin map.
type archetypeTable struct {
	buckets *intmap.Map[uint64, []*Archetype]
}

func newArchetypeTable() *archetypeTable {
	return &archetypeTable{buckets: intmap.New[uint64, []*Archetype](64)}
}

// Resolve returns the archetype matching key if one is already known.
func (t *archetypeTable) Resolve(key LookupKey) (*Archetype, bool) {
	bucket, ok := t.buckets.Get(key.hash())
	if !ok {
		return nil, false
	}
	for _, a := range bucket {
		if key.Equal(ExistingKey(a)) {
			return a, true
		}
	}
	return nil, false
}

// Insert registers a newly created archetype under its own lookup hash.
func (t *archetypeTable) Insert(a *Archetype) {
	bucket, _ := t.buckets.Get(a.lookupHash)
	t.buckets.Put(a.lookupHash, append(bucket, a))
}

func (t *archetypeTable) Len() int { return t.buckets.Len() }
