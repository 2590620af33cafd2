// Package plan implements the access-path planner (C5, §4.5): given a
// table's WHERE predicate, ORDER BY, hint and catalog indexes, it emits the
// AccessPath the executor should run. The planner never touches a
// kvs.Transaction itself — it decides shape, not data.
package plan

import (
	"sort"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/expr"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// AccessKind tags the AccessPath variant chosen for a scan.
type AccessKind int

const (
	AccessTableScan AccessKind = iota
	AccessPointLookup
	AccessBTreeScan
	AccessIndexUnion
	AccessFullTextSearch
	AccessKnnSearch
	AccessCountIndex
)

// IndexAccess is the predicate shape matched against a single index, per
// §4.5's access variants for BTreeScan.
type IndexAccessKind int

const (
	IndexEquality IndexAccessKind = iota
	IndexRange
	IndexCompound
)

type IndexAccess struct {
	Kind     IndexAccessKind
	Equality types.Value
	From, To types.Value
	HasFrom  bool
	HasTo    bool
	Prefix   []types.Value // Compound: leading equality-matched columns
}

// AccessPath is the tagged-variant decision the planner emits, per §4.5.
type AccessPath struct {
	Kind      AccessKind
	Direction consts.Direction

	// PointLookup
	RecordID *types.RecordId

	// BTreeScan / IndexUnion parts
	Index  *catalog.IndexDefinition
	Access IndexAccess
	Parts  []AccessPath // IndexUnion

	// FullTextSearch
	Query    string
	Operator string // "@@" | "@n@"

	// KnnSearch
	Vector []float64
	K      int
	Ef     int
}

// Predicate is a flattened conjunctive/disjunctive WHERE clause the caller
// extracts from a parsed expr.PhysicalExpr tree before planning; the
// planner works over this simplified shape rather than re-walking
// PhysicalExpr nodes itself, keeping expr and plan decoupled.
type Predicate struct {
	Column   string
	Op       expr.BinaryOp
	Value    types.Value
	ValueLo  types.Value
	ValueHi  types.Value
	IsOr     bool // true when this predicate is one disjunct of an OR chain
	FullText bool // column matched via @@ / @n@
	Knn      bool // column matched via vector::knn
	KnnK     int
	KnnEf    int
	KnnVec   []float64
}

// OrderSpec is the first ORDER BY term, used only for direction selection
// per §4.5 ("If the first ORDER BY targets the record id descending").
type OrderSpec struct {
	Column     string
	Descending bool
}

// Hint is a WITH INDEX/NOINDEX clause.
type Hint struct {
	NoIndex bool
	Only    []string // WITH INDEX a,b — empty means no restriction
}

// Plan chooses an AccessPath for a scan over table tb, given its indexes,
// a conjunctive list of predicates, an optional source RecordId (when the
// FROM target is itself a literal record id rather than a table name), the
// first ORDER BY term, a WITH INDEX/NOINDEX hint, and whether the statement
// is a bare count() aggregate with no other projected columns.
func Plan(indexes []catalog.IndexDefinition, preds []Predicate, source *types.RecordId, order *OrderSpec, hint Hint, countOnly bool) AccessPath {
	dir := direction(order)

	if source != nil {
		if !source.IsRange() {
			return AccessPath{Kind: AccessPointLookup, RecordID: source, Direction: dir}
		}
		return AccessPath{Kind: AccessTableScan, Direction: dir}
	}

	// count() over an unfiltered table needs nothing but key cardinality, so
	// it is rewritable to a keys-only scan (§4.5) rather than a full
	// TableScan that decodes and pipelines every record. A predicated count
	// still goes through the normal candidate selection below, since the
	// predicate itself may need an index or full-row evaluation.
	if countOnly && len(preds) == 0 && !hint.NoIndex {
		return AccessPath{Kind: AccessCountIndex, Direction: dir}
	}

	if hint.NoIndex {
		return AccessPath{Kind: AccessTableScan, Direction: dir}
	}

	candidates := indexes
	if len(hint.Only) > 0 {
		candidates = restrictTo(indexes, hint.Only)
	}

	if fts, ok := planFullText(candidates, preds); ok {
		return fts
	}
	if knn, ok := planKnn(candidates, preds); ok {
		return knn
	}

	if orPreds, ok := disjunction(preds); ok {
		if union, ok := planUnion(candidates, orPreds, dir); ok {
			return union
		}
	}

	if bt, ok := planBTree(candidates, preds, dir); ok {
		return bt
	}

	return AccessPath{Kind: AccessTableScan, Direction: dir}
}

func direction(order *OrderSpec) consts.Direction {
	if order != nil && order.Column == "id" && order.Descending {
		return consts.Backward
	}
	return consts.Forward
}

func restrictTo(indexes []catalog.IndexDefinition, names []string) []catalog.IndexDefinition {
	allow := make(map[string]bool, len(names))
	for _, n := range names {
		allow[n] = true
	}
	var out []catalog.IndexDefinition
	for _, ix := range indexes {
		if allow[ix.Name] {
			out = append(out, ix)
		}
	}
	return out
}

func planFullText(indexes []catalog.IndexDefinition, preds []Predicate) (AccessPath, bool) {
	for _, p := range preds {
		if !p.FullText {
			continue
		}
		for _, ix := range indexes {
			if ix.Variant.Kind == consts.IndexKindFullText && matchesColumn(ix, p.Column) {
				return AccessPath{Kind: AccessFullTextSearch, Index: &ix, Query: p.Value.Str, Operator: string(p.Op)}, true
			}
		}
	}
	return AccessPath{}, false
}

func planKnn(indexes []catalog.IndexDefinition, preds []Predicate) (AccessPath, bool) {
	for _, p := range preds {
		if !p.Knn {
			continue
		}
		for _, ix := range indexes {
			if ix.Variant.Kind == consts.IndexKindHnsw && matchesColumn(ix, p.Column) {
				ef := p.KnnEf
				if ef == 0 {
					ef = consts.DefaultKnnEf
				}
				return AccessPath{Kind: AccessKnnSearch, Index: &ix, Vector: p.KnnVec, K: p.KnnK, Ef: ef}, true
			}
		}
	}
	return AccessPath{}, false
}

func disjunction(preds []Predicate) ([]Predicate, bool) {
	var ors []Predicate
	for _, p := range preds {
		if p.IsOr {
			ors = append(ors, p)
		}
	}
	return ors, len(ors) > 1
}

func planUnion(indexes []catalog.IndexDefinition, orPreds []Predicate, dir consts.Direction) (AccessPath, bool) {
	var parts []AccessPath
	for _, p := range orPreds {
		ix := bestIndexFor(indexes, p.Column)
		if ix == nil {
			return AccessPath{}, false
		}
		parts = append(parts, AccessPath{
			Kind: AccessBTreeScan, Index: ix, Direction: dir,
			Access: IndexAccess{Kind: IndexEquality, Equality: p.Value},
		})
	}
	if len(parts) == 0 {
		return AccessPath{}, false
	}
	return AccessPath{Kind: AccessIndexUnion, Parts: parts, Direction: dir}, true
}

func planBTree(indexes []catalog.IndexDefinition, preds []Predicate, dir consts.Direction) (AccessPath, bool) {
	type scored struct {
		ix    catalog.IndexDefinition
		acc   IndexAccess
		score int
	}
	var best *scored

	for _, ix := range indexes {
		if ix.Variant.Kind == consts.IndexKindFullText || ix.Variant.Kind == consts.IndexKindHnsw {
			continue
		}
		acc, matched := matchPredicateSet(ix, preds)
		if !matched {
			continue
		}
		s := scoreAccess(acc, ix.Unique())
		cand := &scored{ix: ix, acc: acc, score: s}
		if best == nil || cand.score > best.score || (cand.score == best.score && cand.ix.Name < best.ix.Name) {
			best = cand
		}
	}
	if best == nil {
		return AccessPath{}, false
	}
	return AccessPath{Kind: AccessBTreeScan, Index: &best.ix, Access: best.acc, Direction: dir}, true
}

// matchPredicateSet matches preds against ix.Columns in order, building an
// Equality access for a full prefix match, a Range access for a single
// bounded column, or a Compound access when a leading equality prefix is
// followed by a bounded column — per §4.5's BTreeScan access variants.
func matchPredicateSet(ix catalog.IndexDefinition, preds []Predicate) (IndexAccess, bool) {
	byCol := make(map[string]Predicate, len(preds))
	for _, p := range preds {
		if p.IsOr {
			continue
		}
		byCol[p.Column] = p
	}

	var prefix []types.Value
	for i, col := range ix.Columns {
		p, ok := byCol[col]
		if !ok {
			break
		}
		switch p.Op {
		case expr.OpEq:
			prefix = append(prefix, p.Value)
			if i == len(ix.Columns)-1 {
				return IndexAccess{Kind: IndexEquality, Equality: p.Value}, true
			}
		case expr.OpGt, expr.OpGte, expr.OpLt, expr.OpLte:
			if len(prefix) == 0 {
				return IndexAccess{Kind: IndexRange, From: p.ValueLo, To: p.ValueHi, HasFrom: p.ValueLo.Kind != types.KindNone, HasTo: p.ValueHi.Kind != types.KindNone}, true
			}
			return IndexAccess{Kind: IndexCompound, Prefix: prefix, From: p.ValueLo, To: p.ValueHi, HasFrom: p.ValueLo.Kind != types.KindNone, HasTo: p.ValueHi.Kind != types.KindNone}, true
		default:
			return IndexAccess{}, false
		}
	}
	if len(prefix) > 0 {
		return IndexAccess{Kind: IndexCompound, Prefix: prefix}, true
	}
	return IndexAccess{}, false
}

func matchesColumn(ix catalog.IndexDefinition, col string) bool {
	for _, c := range ix.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func bestIndexFor(indexes []catalog.IndexDefinition, col string) *catalog.IndexDefinition {
	var candidates []catalog.IndexDefinition
	for _, ix := range indexes {
		if len(ix.Columns) > 0 && ix.Columns[0] == col {
			candidates = append(candidates, ix)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Unique() != candidates[j].Unique() {
			return candidates[i].Unique()
		}
		return candidates[i].Name < candidates[j].Name
	})
	return &candidates[0]
}

// scoreAccess implements §4.5's tie-break rules: equality beats range, range
// on a unique index beats non-unique, a longer covered prefix beats a
// shorter one.
func scoreAccess(acc IndexAccess, unique bool) int {
	score := 0
	switch acc.Kind {
	case IndexEquality:
		score += 300
	case IndexCompound:
		score += 200 + len(acc.Prefix)*10
	case IndexRange:
		score += 100
	}
	if unique {
		score += 50
	}
	return score
}
