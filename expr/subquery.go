package expr

import "github.com/forbearing/surrealkv-core/types"

// StatementRunner executes a nested statement plan and returns its final
// value, the shape a Subquery needs without expr importing exec/plan (which
// both import expr already) — the same dependency-inversion trick catalog's
// ConditionalEvaluator uses to avoid a cycle with expr.
type StatementRunner func(ec *EvalContext) (types.Value, error)

// Subquery is a nested SELECT/CREATE/UPDATE/DELETE embedded in an expression
// position, e.g. the SIGNIN/SIGNUP expression on an access method, or a
// `(SELECT ...)` inside a WHERE clause. Execution is delegated to Run, which
// the exec package supplies by closing over a compiled operator tree.
type Subquery struct {
	Run    StatementRunner
	access AccessMode
	sql    string
}

func NewSubquery(sql string, access AccessMode, run StatementRunner) Subquery {
	return Subquery{Run: run, access: access, sql: sql}
}

func (s Subquery) Evaluate(ec *EvalContext) (types.Value, error) { return s.Run(ec) }
func (s Subquery) RequiredContext() ContextReq                   { return ContextReq{Root: true, Namespace: true, Database: true} }
func (s Subquery) AccessMode() AccessMode                        { return s.access }
func (s Subquery) ToSQL() string                                 { return "(" + s.sql + ")" }
