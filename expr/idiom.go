package expr

import (
	"strings"

	"github.com/forbearing/surrealkv-core/types"
)

// Idiom is a path expression selecting into the current value — a field, an
// array index, or a dotted chain of both — per the GLOSSARY entry "Idiom".
// Graph-hop and method segments are out of scope for the CORE. NewIdiom only
// produces PartField parts; a PartMethod part (which exists only when Parts
// are built directly) evaluates to None, matching the rest of the engine's
// "unsupported idiom segments degrade to None rather than error" behavior at
// read time.
type Idiom struct {
	Parts []Part
}

type PartKind int

const (
	PartField PartKind = iota
	PartIndex
	PartMethod
)

type Part struct {
	Kind  PartKind
	Field string
	Index int
}

// NewIdiom parses a dotted field path like "address.city" into Parts. It
// never fails: any segment is treated as a field name.
func NewIdiom(path string) Idiom {
	segs := strings.Split(path, ".")
	parts := make([]Part, len(segs))
	for i, s := range segs {
		parts[i] = Part{Kind: PartField, Field: s}
	}
	return Idiom{Parts: parts}
}

func (id Idiom) Evaluate(ec *EvalContext) (types.Value, error) {
	if ec.Current == nil {
		return types.None(), nil
	}
	cur := *ec.Current
	for _, p := range id.Parts {
		switch p.Kind {
		case PartField:
			cur = cur.Field(p.Field)
		case PartIndex:
			if cur.Kind != types.KindArray || p.Index < 0 || p.Index >= len(cur.Array) {
				return types.None(), nil
			}
			cur = cur.Array[p.Index]
		default:
			return types.None(), nil
		}
	}
	return cur, nil
}

func (id Idiom) RequiredContext() ContextReq { return ContextReq{} }
func (id Idiom) AccessMode() AccessMode      { return ReadOnly }

func (id Idiom) ToSQL() string {
	segs := make([]string, len(id.Parts))
	for i, p := range id.Parts {
		segs[i] = p.Field
	}
	return strings.Join(segs, ".")
}
