package expr

import "github.com/forbearing/surrealkv-core/types"

// Literal wraps a constant Value, the leaf of every expression tree.
type Literal struct {
	Value types.Value
}

func NewLiteral(v types.Value) Literal { return Literal{Value: v} }

func (l Literal) Evaluate(*EvalContext) (types.Value, error) { return l.Value, nil }
func (l Literal) RequiredContext() ContextReq                { return ContextReq{} }
func (l Literal) AccessMode() AccessMode                     { return ReadOnly }
func (l Literal) ToSQL() string                              { return l.Value.ToSQLLiteral() }
