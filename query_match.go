package silo

// matchKind selects the comparator/early-exit discipline of an op
// (spec §4.5.3/§4.5.4): ALL requires every id matched, ANY requires at
// least one, NOT requires none.
type matchKind uint8

const (
	matchALL matchKind = iota
	matchANY
	matchNOT
)

// evalMatch runs the linear intersection §4.5.4 describes
// (match_inter<Op>) between a query's id list and one archetype's
// sorted id view, and folds in Op::eval directly rather than returning
// a bare match count — the early-exit rule (ALL stops on a miss, NOT
// stops on a hit) falls out naturally this way.
func evalMatch(kind matchKind, queryIds, archetypeIds []ComponentID, relations RelationsTraverser) bool {
	if kind == matchANY && len(queryIds) == 0 {
		return true
	}

	j := 0
	for _, q := range queryIds {
		var found bool
		if isIsQuery(q) {
			found = matchIsTerm(q, archetypeIds, relations)
			j = 0 // transitive match requires full rescan next time too
		} else {
			rescan := isWildcardID(q)
			if rescan {
				j = 0
			}
			for j < len(archetypeIds) {
				a := archetypeIds[j]
				if cmpIDs(q, a) {
					found = true
					j++
					break
				}
				if !rescan && a.Key() > q.Key() {
					break
				}
				j++
			}
		}

		if found {
			switch kind {
			case matchNOT:
				return false
			case matchANY:
				return true
			}
		} else if kind == matchALL {
			return false
		}
	}

	switch kind {
	case matchALL:
		return true
	case matchANY:
		return false
	default:
		return true
	}
}

// cmpIDs is cmp_ids / cmp_ids_pairs combined: plain equality, the All
// wildcard matching anything, and pair-wise wildcard rules.
func cmpIDs(q, a ComponentID) bool {
	if q.IsAll() {
		return true
	}
	if q.IsPair() || a.IsPair() {
		return cmpIDsPairs(q, a)
	}
	return q == a
}

// cmpIDsPairs implements spec §4.5.4's pair rules: (All,All) ≡ true,
// (X,All) ≡ q.first==a.first, (All,X) ≡ q.second==a.second, else both
// halves must match exactly.
func cmpIDsPairs(q, a ComponentID) bool {
	if !q.IsPair() || !a.IsPair() {
		return false
	}
	qf, qs := q.First(), q.Second()
	af, as := a.First(), a.Second()
	switch {
	case qf.IsAll() && qs.IsAll():
		return true
	case qf.IsAll():
		return qs == as
	case qs.IsAll():
		return qf == af
	default:
		return qf == af && qs == as
	}
}

// matchIsTerm implements cmp_ids_is(_pairs): traverse the transitive
// closure of Is from q's target half and succeed on the first reachable
// relation present in the archetype's id list.
func matchIsTerm(q ComponentID, archetypeIds []ComponentID, relations RelationsTraverser) bool {
	target := q.Second()
	if relations == nil {
		return containsID(archetypeIds, target)
	}
	return relations.TraverseIf(target, func(r Entity) bool {
		return containsID(archetypeIds, r)
	})
}

// containsID binary-searches a sorted id list.
func containsID(ids []ComponentID, id ComponentID) bool {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid].Key() < id.Key() {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(ids) && ids[lo] == id
}
