// Package expr implements the evaluable expression tree of §4.4: a small
// tagged-union AST dispatched through the PhysicalExpr interface, mirroring
// the spec's "no inheritance, interface with a small method set" design note
// (§9). Variants live in their own files (literal.go, idiom.go, function.go,
// binary.go, subquery.go) the way the teacher splits each Model into its own
// file under model/ rather than one giant switch.
package expr

import (
	"context"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
)

// AccessMode reports whether evaluating an expression can mutate the
// transaction (e.g. a CREATE subquery) or is side-effect free.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	ReadWrite
)

// ContextReq declares which ambient scopes an expression needs resolved
// before it can evaluate — Root always, Namespace/Database only when the
// expression touches catalog-scoped state (idioms, DEFINE-time defaults,
// functions that read the catalog).
type ContextReq struct {
	Root      bool
	Namespace bool
	Database  bool
}

// EvalContext is the frozen execution context threaded through Evaluate,
// plus the "current value" scan operators set so idioms like `.field`
// resolve against the row being filtered (§4.4).
type EvalContext struct {
	Ctx     context.Context
	View    *catalog.View
	Session *types.Session

	// Current is the row or sub-value idioms resolve against. nil outside a
	// scan's per-row evaluation.
	Current *types.Value

	// PermissionsDisabled is set while evaluating a Conditional permission
	// expression against a candidate row, per §4.3's "recursive checks
	// would be ill-founded" rule.
	PermissionsDisabled bool

	Functions FunctionRegistry
}

// WithCurrent returns a shallow copy of ec with Current replaced, used by
// scan operators to evaluate per-row expressions without mutating the
// context shared across rows.
func (ec *EvalContext) WithCurrent(v types.Value) *EvalContext {
	cp := *ec
	cp.Current = &v
	return &cp
}

// PhysicalExpr is the evaluation-tree node interface of §4.4 and §9.
type PhysicalExpr interface {
	Evaluate(ec *EvalContext) (types.Value, error)
	RequiredContext() ContextReq
	AccessMode() AccessMode
	ToSQL() string
}
