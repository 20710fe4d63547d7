package silo

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

type opKind uint8

const (
	opALL opKind = iota
	opANY
	opNOT
)

// op is one compiled instruction: an id list plus the variant §4.5.2
// picks for it. bloom is only populated for shapeSimple ops — the
// Bloom-style early-rejection mask over the op's ids, used by ALL
// (spec §4.5.3: "Simple variant additionally pre-checks a Bloom-style
// queryMask").
type op struct {
	kind  opKind
	shape termShape
	ids   []ComponentID
	bloom mask.Mask
}

// Query is a compiled-or-pending declarative query: term lists plus the
// op program built from them (§4.5.2/§4.5.3) and the incremental-scan
// cache (§4.5.5). The zero value is not usable; build with NewQuery.
type Query struct {
	terms     Terms
	ops       []op
	compiled  bool
	recompile bool
	cache     queryCache
}

// NewQuery builds a query from its term lists, sorted once up front.
// The query starts uncompiled — the first Exec call compiles it.
func NewQuery(terms Terms) *Query {
	sortIDKeys(terms.All)
	sortIDKeys(terms.Any)
	sortIDKeys(terms.Not)
	return &Query{terms: terms, recompile: true, cache: newQueryCache()}
}

// SetTerms replaces the query's term lists and marks it Recompile (spec
// §4.5.2 state machine: any term edit forces compile on next exec).
func (q *Query) SetTerms(terms Terms) {
	sortIDKeys(terms.All)
	sortIDKeys(terms.Any)
	sortIDKeys(terms.Not)
	q.terms = terms
	q.recompile = true
	q.cache.reset()
}

// IsCompiled reports whether the op list reflects the current terms.
func (q *Query) IsCompiled() bool { return q.compiled && !q.recompile }

func sortIDKeys(ids []ComponentID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
}

// compile builds the op program, in order ALL -> ANY -> NOT (§4.5.2).
//
// A term's "fixed source entity" short-circuit (§4.5.2: "if the
// archetype does not exist, the query is statically empty — emit no
// ops") needs no special case of its own here: the ALL op already
// starts its scan from entityToArchetypeMap's bucket for its anchor id,
// which is simply empty when no archetype carries that id, producing
// the same empty-result outcome through the general path.
func (q *Query) compile(descs CompDescCache) {
	q.ops = q.ops[:0]
	if len(q.terms.All) > 0 {
		q.ops = append(q.ops, q.buildOp(opALL, q.terms.All, descs))
	}
	if len(q.terms.Any) > 0 {
		q.ops = append(q.ops, q.buildOp(opANY, q.terms.Any, descs))
	}
	if len(q.terms.Not) > 0 {
		q.ops = append(q.ops, q.buildOp(opNOT, q.terms.Not, descs))
	}
	q.compiled = true
	q.recompile = false
}

func (q *Query) buildOp(kind opKind, ids []ComponentID, descs CompDescCache) op {
	o := op{kind: kind, shape: classify(ids), ids: ids}
	if o.shape == shapeSimple {
		for _, id := range ids {
			if d, ok := descs.CompDesc(id); ok {
				o.bloom.Mark(d.bitIndex)
			}
		}
	}
	return o
}
