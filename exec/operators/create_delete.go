package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// IDAllocator produces a fresh record key for a CREATE that did not specify
// one inline, e.g. a catalog-backed counter or a random uuid generator.
type IDAllocator func(ctx context.Context, ns, db, tb string) (types.Value, error)

// Create implements §4.6.6's CREATE half: resolves the CREATE permission at
// execution time (not plan time — concurrent DDL may have changed it since
// the statement was planned), auto-defines the table for system/admin actors
// on a schemaless insert, and writes each surviving value through the
// transaction.
type Create struct {
	Ns, Db, Tb      string
	View            *catalog.View
	Actor           types.Actor
	AuthDisabled    bool
	EvalConditional catalog.ConditionalEvaluator
	Alloc           IDAllocator

	Values []types.Value
}

func (c *Create) Execute(ctx context.Context) (exec.BatchIterator, error) {
	tbDef, err := getTbOrNil(ctx, c.View, c.Ns, c.Db, c.Tb)
	if err != nil {
		return nil, err
	}

	resolved := catalog.ResolveTable(c.AuthDisabled, c.Actor, consts.ActionCreate, c.Ns, c.Db, tbDef)
	if resolved.Denied() {
		return nil, errors.Wrapf(types.ErrTablePermissions, "create on %q", c.Tb)
	}

	// §4.6.6: a schemaless insert that reaches here was allowed because the
	// actor is system/admin (ResolveTable's nil-tbDef branch) — persist the
	// auto-defined table so later statements see it.
	if tbDef == nil {
		def := catalog.TableDefinition{Name: c.Tb, SchemaFull: false, Permissions: catalog.TablePermissions{
			Create: catalog.Allow(), Select: catalog.Allow(), Update: catalog.Allow(), Delete: catalog.Allow(),
		}}
		if err := c.View.PutTb(ctx, c.Ns, c.Db, def); err != nil {
			return nil, err
		}
		tbDef = &def
	}

	var created []types.Value
	for _, val := range c.Values {
		if resolved.Conditional() {
			ok, err := c.EvalConditional(ctx, resolved.Expr, val)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Wrapf(types.ErrTablePermissions, "create on %q denied by condition", c.Tb)
			}
		}

		id, val, err := c.withID(ctx, val)
		if err != nil {
			return nil, err
		}
		if err := c.View.PutRecord(ctx, c.Ns, c.Db, c.Tb, id, val); err != nil {
			return nil, err
		}
		created = append(created, types.NewRecord(id, val).WithIDInjected())
	}
	logger.Engine.WithExecContext(&types.ExecContext{Ns: c.Ns, Db: c.Db, Tb: c.Tb, Actor: c.Actor.ID}, consts.PhaseCreate).
		Debugw("records created", "count", len(created))
	if metrics.BatchesEmitted != nil {
		metrics.BatchesEmitted.WithLabelValues("create").Inc()
	}
	return exec.SingleBatchIterator(created), nil
}

func (c *Create) withID(ctx context.Context, val types.Value) (*types.RecordId, types.Value, error) {
	if existing := val.Field("id"); existing.Kind == types.KindRecordId && existing.RecordId != nil {
		return existing.RecordId, val.WithoutField("id"), nil
	}
	key, err := c.Alloc(ctx, c.Ns, c.Db, c.Tb)
	if err != nil {
		return nil, types.None(), err
	}
	return types.NewRecordId(c.Tb, key), val, nil
}

// Delete implements §4.6.6's DELETE half, mirroring Create's permission
// resolution and abort-on-deny semantics.
type Delete struct {
	Ns, Db, Tb      string
	View            *catalog.View
	Actor           types.Actor
	AuthDisabled    bool
	EvalConditional catalog.ConditionalEvaluator

	Targets []types.Value // keys of records to delete
}

func (d *Delete) Execute(ctx context.Context) (exec.BatchIterator, error) {
	tbDef, err := getTbOrNil(ctx, d.View, d.Ns, d.Db, d.Tb)
	if err != nil {
		return nil, err
	}

	resolved := catalog.ResolveTable(d.AuthDisabled, d.Actor, consts.ActionDelete, d.Ns, d.Db, tbDef)
	if resolved.Denied() {
		return nil, errors.Wrapf(types.ErrTablePermissions, "delete on %q", d.Tb)
	}

	var deleted []types.Value
	for _, key := range d.Targets {
		rec, err := d.View.GetRecord(ctx, d.Ns, d.Db, d.Tb, key)
		if errors.Is(err, types.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		row := rec.WithIDInjected()

		if resolved.Conditional() {
			ok, err := d.EvalConditional(ctx, resolved.Expr, row)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Wrapf(types.ErrTablePermissions, "delete on %q denied by condition", d.Tb)
			}
		}

		if err := d.View.DelRecord(ctx, d.Ns, d.Db, d.Tb, key); err != nil {
			return nil, err
		}
		deleted = append(deleted, row)
	}
	logger.Engine.WithExecContext(&types.ExecContext{Ns: d.Ns, Db: d.Db, Tb: d.Tb, Actor: d.Actor.ID}, consts.PhaseDelete).
		Debugw("records deleted", "count", len(deleted))
	if metrics.BatchesEmitted != nil {
		metrics.BatchesEmitted.WithLabelValues("delete").Inc()
	}
	return exec.SingleBatchIterator(deleted), nil
}

// getTbOrNil resolves a table definition, treating "not found" as nil rather
// than an error — ResolveTable's nil-tbDef branch implements §4.6.6's
// schemaless-insert rule (deny for record actors, allow for system/admin)
// directly, so callers don't need to special-case it themselves.
func getTbOrNil(ctx context.Context, view *catalog.View, ns, db, tb string) (*catalog.TableDefinition, error) {
	tbDef, err := view.GetTb(ctx, ns, db, tb)
	if errors.Is(err, types.ErrTbNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tbDef, nil
}
