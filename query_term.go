package silo

// Terms is the input to NewQuery: three ordered id lists partitioned
// ALL/ANY/NOT (spec §4.5.1). Each id may be a plain component, the All
// wildcard, a relationship pair, or an Is-pair for transitive matching.
type Terms struct {
	All []ComponentID
	Any []ComponentID
	Not []ComponentID
}

// termShape is the op variant the compiler picks per spec §4.5.2.
type termShape uint8

const (
	shapeSimple   termShape = iota // no wildcards, no Is
	shapeWildcard                  // All or pair-wildcards, no Is
	shapeComplex                   // contains an Is term
)

// isIsQuery reports whether id is a pair whose first half is the Is tag
// — a transitive-subtype term, spec §4.5.4's cmp_ids_is(_pairs).
func isIsQuery(id ComponentID) bool {
	return id.IsPair() && id.First().IsIs()
}

// isWildcardID reports whether id needs the "full rescan" treatment
// spec §4.5.4 describes for wildcards — the plain All entity, or a pair
// with All in either half.
func isWildcardID(id ComponentID) bool {
	if id.IsAll() {
		return true
	}
	if id.IsPair() {
		return id.First().IsAll() || id.Second().IsAll()
	}
	return false
}

// classify picks shapeComplex if any id needs Is traversal, else
// shapeWildcard if any id needs a full rescan, else shapeSimple.
func classify(ids []ComponentID) termShape {
	shape := shapeSimple
	for _, id := range ids {
		if isIsQuery(id) {
			return shapeComplex
		}
		if isWildcardID(id) {
			shape = shapeWildcard
		}
	}
	return shape
}
