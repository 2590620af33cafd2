package expr

import (
	"strings"

	"github.com/forbearing/surrealkv-core/types"
)

// BinaryOp mirrors the operators a WHERE clause compiles down to: comparison,
// boolean, and the full-text/KNN match operators the planner matches on
// structurally (§4.5's "@@ match operator", "vector::knn(v,k)").
type BinaryOp string

const (
	OpEq      BinaryOp = "="
	OpNeq     BinaryOp = "!="
	OpLt      BinaryOp = "<"
	OpLte     BinaryOp = "<="
	OpGt      BinaryOp = ">"
	OpGte     BinaryOp = ">="
	OpAnd     BinaryOp = "AND"
	OpOr      BinaryOp = "OR"
	OpMatch   BinaryOp = "@@"  // full-text match
	OpKnn     BinaryOp = "<k>" // vector::knn shorthand
)

// Binary is a two-operand expression node.
type Binary struct {
	Op          BinaryOp
	Left, Right PhysicalExpr
}

func NewBinary(op BinaryOp, left, right PhysicalExpr) Binary {
	return Binary{Op: op, Left: left, Right: right}
}

func (b Binary) Evaluate(ec *EvalContext) (types.Value, error) {
	switch b.Op {
	case OpAnd:
		l, err := b.Left.Evaluate(ec)
		if err != nil {
			return types.None(), err
		}
		if !l.IsTruthy() {
			return types.BoolValue(false), nil
		}
		r, err := b.Right.Evaluate(ec)
		if err != nil {
			return types.None(), err
		}
		return types.BoolValue(r.IsTruthy()), nil
	case OpOr:
		l, err := b.Left.Evaluate(ec)
		if err != nil {
			return types.None(), err
		}
		if l.IsTruthy() {
			return types.BoolValue(true), nil
		}
		r, err := b.Right.Evaluate(ec)
		if err != nil {
			return types.None(), err
		}
		return types.BoolValue(r.IsTruthy()), nil
	}

	l, err := b.Left.Evaluate(ec)
	if err != nil {
		return types.None(), err
	}
	r, err := b.Right.Evaluate(ec)
	if err != nil {
		return types.None(), err
	}

	switch b.Op {
	case OpEq:
		return types.BoolValue(types.ValueEqual(l, r)), nil
	case OpNeq:
		return types.BoolValue(!types.ValueEqual(l, r)), nil
	case OpLt:
		return types.BoolValue(l.Compare(r) < 0), nil
	case OpLte:
		return types.BoolValue(l.Compare(r) <= 0), nil
	case OpGt:
		return types.BoolValue(l.Compare(r) > 0), nil
	case OpGte:
		return types.BoolValue(l.Compare(r) >= 0), nil
	default:
		// OpMatch/OpKnn are structurally matched by the planner (§4.5) and
		// never reach evaluate() on the access-path-chosen branch; on the
		// table-scan fallback they degrade to an unconditional false rather
		// than re-implementing full-text/vector search inline.
		return types.BoolValue(false), nil
	}
}

func (b Binary) RequiredContext() ContextReq {
	l := b.Left.RequiredContext()
	r := b.Right.RequiredContext()
	return ContextReq{
		Root:      l.Root || r.Root,
		Namespace: l.Namespace || r.Namespace,
		Database:  l.Database || r.Database,
	}
}

func (b Binary) AccessMode() AccessMode {
	if b.Left.AccessMode() == ReadWrite || b.Right.AccessMode() == ReadWrite {
		return ReadWrite
	}
	return ReadOnly
}

func (b Binary) ToSQL() string {
	return strings.Join([]string{b.Left.ToSQL(), string(b.Op), b.Right.ToSQL()}, " ")
}
