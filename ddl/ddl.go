// Package ddl implements C8 (§4.8): DEFINE, ALTER, and REMOVE execution over
// the catalog. Every operation follows the same template — permission check,
// collision/existence handling per DefineMode, write under the canonical key,
// bump the owning table's cache timestamp — grounded on catalog/view.go's
// write path and catalog/resolve.go's permission-resolution style.
package ddl

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// checkEdit implements §4.8 step 1: the actor must be Root, or hold Editor/Owner
// at a level that contains (ns,db). Disabled auth always passes, mirroring
// catalog.ResolveTable's AuthDisabled short-circuit.
func checkEdit(authDisabled bool, actor types.Actor, ns, db string) error {
	if authDisabled || actor.Level == consts.LevelRoot {
		return nil
	}
	if !actor.ContainsScope(ns, db) {
		return errors.Wrapf(types.ErrNsNotAllowed, "actor scope does not contain %q/%q", ns, db)
	}
	if actor.HasRole(consts.RoleEditor) || actor.HasRole(consts.RoleOwner) {
		return nil
	}
	return errors.Wrapf(types.ErrTablePermissions, "actor lacks editor role for %q/%q", ns, db)
}

// KillNotifier delivers a Killed notification to live subscriptions on a
// table being removed, per §4.8 step 6 / §6.6. The ddl package only needs
// this narrow callback shape, not pkg/notify's transport details — the same
// dependency-inversion pattern as exec.ComputedEvaluator.
type KillNotifier func(ctx context.Context, ns, db, tb string) error

// resolveCollision implements "already exists" handling for DEFINE per §4.8
// step 3: Default always fails on collision (there is no import override),
// IfNotExists is a no-op, Overwrite replaces unconditionally.
//
// exists reports whether the target name is already taken; alreadyErr is the
// specific sentinel to return for the Default case.
func resolveCollision(mode consts.DefineMode, exists bool, alreadyErr error) (skip bool, err error) {
	if !exists {
		return false, nil
	}
	switch mode {
	case consts.DefineIfNotExists:
		return true, nil
	case consts.DefineOverwrite:
		return false, nil
	default:
		return false, alreadyErr
	}
}

// swallowNotFound implements the `IF EXISTS` removal variant of §4.8: missing
// target is silently accepted, every other error propagates.
func swallowNotFound(ifExists bool, err error) error {
	if err == nil {
		return nil
	}
	if ifExists && errors.Is(err, types.ErrNotFound) {
		return nil
	}
	return err
}

// bumpCacheFields/Indexes/Events re-persist the owning table with its
// relevant cache_*_ts incremented, per §4.8 step 5. The table must already
// exist — Define{Field,Index,Event} return the table's NotFound error when it
// does not, rather than auto-defining it.
func bumpCacheFields(ctx context.Context, view *catalog.View, ns, db string, tbDef *catalog.TableDefinition) error {
	tbDef.CacheFieldsTs++
	if err := view.PutTb(ctx, ns, db, *tbDef); err != nil {
		return err
	}
	if metrics.DDLCacheBumps != nil {
		metrics.DDLCacheBumps.WithLabelValues("fields").Inc()
	}
	return nil
}

func bumpCacheIndexes(ctx context.Context, view *catalog.View, ns, db string, tbDef *catalog.TableDefinition) error {
	tbDef.CacheIndexesTs++
	if err := view.PutTb(ctx, ns, db, *tbDef); err != nil {
		return err
	}
	if metrics.DDLCacheBumps != nil {
		metrics.DDLCacheBumps.WithLabelValues("indexes").Inc()
	}
	return nil
}

func bumpCacheEvents(ctx context.Context, view *catalog.View, ns, db string, tbDef *catalog.TableDefinition) error {
	tbDef.CacheEventsTs++
	if err := view.PutTb(ctx, ns, db, *tbDef); err != nil {
		return err
	}
	if metrics.DDLCacheBumps != nil {
		metrics.DDLCacheBumps.WithLabelValues("events").Inc()
	}
	return nil
}

// ensureNamespace/ensureDatabase auto-define a missing parent, per §4.8 step
// 4 ("ensure parents exist"). They do so unconditionally: no strict-mode flag
// is checked, so a strict database does not block the auto-define.
func ensureNamespace(ctx context.Context, view *catalog.View, ns string) (*catalog.NamespaceDefinition, error) {
	def, err := view.GetNs(ctx, ns)
	if err == nil {
		return def, nil
	}
	if !errors.Is(err, types.ErrNsNotFound) {
		return nil, err
	}
	created := catalog.NamespaceDefinition{Name: ns}
	if err := view.PutNs(ctx, created); err != nil {
		return nil, err
	}
	return &created, nil
}

func ensureDatabase(ctx context.Context, view *catalog.View, ns, db string) (*catalog.DatabaseDefinition, error) {
	def, err := view.GetDb(ctx, ns, db)
	if err == nil {
		return def, nil
	}
	if !errors.Is(err, types.ErrDbNotFound) {
		return nil, err
	}
	created := catalog.DatabaseDefinition{Name: db}
	if err := view.PutDb(ctx, ns, created); err != nil {
		return nil, err
	}
	return &created, nil
}
