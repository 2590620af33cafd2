package catalog

import (
	"context"

	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Resolved is the outcome of resolving an abstract permission value against
// an actor, per §4.3: Allow, Deny, or Conditional(expr) pending per-candidate
// evaluation.
type Resolved struct {
	Kind PermissionKind // PermissionFull=Allow, PermissionNone=Deny, PermissionSpecific=Conditional
	Expr string
}

func (r Resolved) Allowed() bool      { return r.Kind == PermissionFull }
func (r Resolved) Denied() bool       { return r.Kind == PermissionNone }
func (r Resolved) Conditional() bool  { return r.Kind == PermissionSpecific }

var allow = Resolved{Kind: PermissionFull}
var deny = Resolved{Kind: PermissionNone}

// ResolveTable applies §4.3 rules 1-3 for action on the table identified by
// tbDef (nil means the table is schemaless/undeclared).
//
// authDisabled and actor come from the calling Session; tbDef is nil when
// the table has no DEFINE TABLE entry (schemaless mode).
func ResolveTable(authDisabled bool, actor types.Actor, action consts.CRUDAction, ns, db string, tbDef *TableDefinition) Resolved {
	if authDisabled && actor.Level == consts.LevelRoot && actor.ID == "" {
		return allow
	}
	if actor.HasRole(action.RequiredRole()) && actor.ContainsScope(ns, db) {
		return allow
	}

	if tbDef == nil {
		if actor.Level == consts.LevelRecord {
			return deny
		}
		return allow
	}

	perm := tbDef.Permissions.Get(action)
	switch perm.Kind {
	case PermissionFull:
		return allow
	case PermissionSpecific:
		return Resolved{Kind: PermissionSpecific, Expr: perm.Expr}
	default:
		return deny
	}
}

// ResolveField mirrors ResolveTable for a single field's permission on action,
// used by §4.3's field redaction pass. Field permissions never get the
// role-shortcut of rule 2 applied again — that shortcut already gated
// whether the row is visible at all.
func ResolveField(perm Permission) Resolved {
	switch perm.Kind {
	case PermissionFull:
		return allow
	case PermissionSpecific:
		return Resolved{Kind: PermissionSpecific, Expr: perm.Expr}
	default:
		return deny
	}
}

// ConditionalEvaluator evaluates a stored Conditional(expr) against a
// candidate record with permission checks disabled, per §4.3's "recursive
// checks would be ill-founded" rule. The expr package supplies the concrete
// implementation; catalog only depends on this narrow function shape so it
// never needs to import expr.
type ConditionalEvaluator func(ctx context.Context, expr string, candidate types.Value) (bool, error)

// EvaluateRowPermission applies a Resolved permission to one candidate row,
// returning whether it survives.
func EvaluateRowPermission(ctx context.Context, r Resolved, candidate types.Value, eval ConditionalEvaluator) (bool, error) {
	switch r.Kind {
	case PermissionFull:
		return true, nil
	case PermissionNone:
		return false, nil
	default:
		return eval(ctx, r.Expr, candidate)
	}
}

// CheckTenancy enforces §4.3's "record-user tenancy" rule: a Record actor's
// (ns,db) must equal the session's (ns,db).
func CheckTenancy(actor types.Actor, ns, db string) error {
	if actor.Level != consts.LevelRecord {
		return nil
	}
	if actor.Ns != ns {
		return types.ErrNsNotAllowed
	}
	if actor.Db != db {
		return types.ErrDbNotAllowed
	}
	return nil
}
