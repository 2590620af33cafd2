package exec

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// ComputedEvaluator evaluates one field's compiled Computed expression
// against the row built so far. The caller supplies this rather than exec
// parsing FieldDefinition.Computed itself — compiling the serialized
// expression form into a expr.PhysicalExpr is the statement compiler's job
// (out of scope per §1, "only the expression IR is consumed"); exec only
// needs this narrow function shape, the same dependency-inversion pattern
// catalog/iam use for ConditionalEvaluator/ExprRunner.
type ComputedEvaluator func(ctx context.Context, fieldExprSrc string, row types.Value) (types.Value, error)

// RowPipeline implements §4.6.1 steps 1-4: inject id, evaluate computed
// fields in dependency order, apply table-level permission, redact fields.
// Every record-producing operator (Scan, IndexScan, FullTextScan, KnnScan)
// shares this pipeline so the permission/redaction behavior is identical
// regardless of access path (§3.14's "Index/table scan parity" invariant).
type RowPipeline struct {
	View            *catalog.View
	Actor           types.Actor
	AuthDisabled    bool
	EvalConditional catalog.ConditionalEvaluator
	EvalComputed    ComputedEvaluator
}

// Process returns the row to emit (with id injected, computed fields filled,
// denied fields redacted) and whether the row survives table-level
// filtering. ok=false with a nil error means "drop this row", not a fault.
func (p *RowPipeline) Process(ctx context.Context, ns, db string, tbDef *catalog.TableDefinition, rec *types.Record) (types.Value, bool, error) {
	row := rec.WithIDInjected()

	resolved := catalog.ResolveTable(p.AuthDisabled, p.Actor, consts.ActionSelect, ns, db, tbDef)

	var fields []catalog.FieldDefinition
	if tbDef != nil {
		var err error
		fields, err = p.View.AllTbFields(ctx, ns, db, tbDef)
		if err != nil {
			return types.None(), false, err
		}
	}

	hasComputed, hasFieldPerms := false, false
	for _, fd := range fields {
		if fd.Computed != nil {
			hasComputed = true
		}
		if fd.SelectPermission.Kind != catalog.PermissionFull {
			hasFieldPerms = true
		}
	}

	// Fast path (§4.6.1: "skips steps 2-4 when permission is Allow, there
	// are no computed fields, and no field-level permissions apply").
	if resolved.Allowed() && !hasComputed && !hasFieldPerms {
		return row, true, nil
	}

	if hasComputed && p.EvalComputed != nil {
		ordered, err := topoOrder(fields)
		if err != nil {
			return types.None(), false, err
		}
		for _, fd := range ordered {
			if fd.Computed == nil {
				continue
			}
			val, err := p.EvalComputed(ctx, *fd.Computed, row)
			if err != nil {
				return types.None(), false, err
			}
			row = row.WithField(fd.Name, val)
		}
	}

	ok, err := catalog.EvaluateRowPermission(ctx, resolved, row, p.EvalConditional)
	if err != nil {
		return types.None(), false, err
	}
	if !ok {
		return types.None(), false, nil
	}

	for _, fd := range fields {
		fr := catalog.ResolveField(fd.SelectPermission)
		switch {
		case fr.Denied():
			row = row.WithoutField(fd.Name)
		case fr.Conditional():
			if p.EvalConditional == nil {
				continue
			}
			allowed, err := p.EvalConditional(ctx, fr.Expr, row)
			if err != nil {
				return types.None(), false, err
			}
			if !allowed {
				row = row.WithoutField(fd.Name)
			}
		}
	}
	return row, true, nil
}

// topoOrder orders fields so that every field appears after its
// ComputedDeps, per §3's "computed fields form a DAG over computed_deps".
// Fields with no deps (or legacy definitions with ComputedDeps absent, per
// the Open Question #3 decision in DESIGN.md) keep their catalog order.
// A cycle means the schema should have rejected it at DDL time (§9), so it
// surfaces as types.ErrInternal rather than silently truncating the order.
func topoOrder(fields []catalog.FieldDefinition) ([]catalog.FieldDefinition, error) {
	byName := make(map[string]catalog.FieldDefinition, len(fields))
	for _, fd := range fields {
		byName[fd.Name] = fd
	}
	state := make(map[string]int, len(fields)) // 0=unvisited, 1=in-progress, 2=done
	order := make([]catalog.FieldDefinition, 0, len(fields))

	var cycleErr error
	var visit func(name string)
	visit = func(name string) {
		if cycleErr != nil || state[name] == 2 {
			return
		}
		if state[name] == 1 {
			cycleErr = errors.Wrapf(types.ErrInternal, "computed field cycle detected at %q", name)
			return
		}
		fd, ok := byName[name]
		if !ok {
			return
		}
		state[name] = 1
		for _, dep := range fd.ComputedDeps {
			visit(dep)
			if cycleErr != nil {
				return
			}
		}
		state[name] = 2
		order = append(order, fd)
	}
	for _, fd := range fields {
		visit(fd.Name)
		if cycleErr != nil {
			return nil, cycleErr
		}
	}
	return order, nil
}
