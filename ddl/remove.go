package ddl

import (
	"context"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// RemoveAccess implements §4.8 step 6 for REMOVE ACCESS at root/namespace/
// database level.
func RemoveAccess(ctx context.Context, d Deps, ns, db string, level consts.Level, name string, ifExists bool) error {
	scNs, scDb := scopeFor(level, ns, db)
	if err := checkEdit(d.AuthDisabled, d.Actor, scNs, scDb); err != nil {
		return err
	}
	tag := levelTag(level)
	if _, err := d.View.GetAccess(ctx, tag, ns, db, name); err != nil {
		return swallowNotFound(ifExists, err)
	}
	return d.View.DelAccess(ctx, tag, ns, db, name)
}

// RemoveUser implements §4.8 step 6 for REMOVE USER at root/namespace/
// database level.
func RemoveUser(ctx context.Context, d Deps, ns, db string, level consts.Level, name string, ifExists bool) error {
	scNs, scDb := scopeFor(level, ns, db)
	if err := checkEdit(d.AuthDisabled, d.Actor, scNs, scDb); err != nil {
		return err
	}
	tag := levelTag(level)
	if _, err := d.View.GetUser(ctx, tag, ns, db, name); err != nil {
		return swallowNotFound(ifExists, err)
	}
	return d.View.DelUser(ctx, tag, ns, db, name)
}

// RemoveParam implements §4.8 step 6 for REMOVE PARAM.
func RemoveParam(ctx context.Context, d Deps, ns, db, name string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if _, err := d.View.GetParam(ctx, ns, db, name); err != nil {
		return swallowNotFound(ifExists, err)
	}
	return d.View.DelParam(ctx, ns, db, name)
}

// RemoveAnalyzer implements §4.8 step 6 for REMOVE ANALYZER.
func RemoveAnalyzer(ctx context.Context, d Deps, ns, db, name string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if _, err := d.View.GetAnalyzer(ctx, ns, db, name); err != nil {
		return swallowNotFound(ifExists, err)
	}
	return d.View.DelAnalyzer(ctx, ns, db, name)
}

// RemoveNamespace implements §4.8 step 6 for REMOVE NAMESPACE: delete the
// definition, cascade-delete every child database/table/record under it.
func RemoveNamespace(ctx context.Context, d Deps, ns string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, ""); err != nil {
		return err
	}
	if _, err := d.View.GetNs(ctx, ns); err != nil {
		return swallowNotFound(ifExists, err)
	}
	if err := d.View.DelNs(ctx, ns); err != nil {
		return err
	}
	return d.View.ClrChildren(ctx, catalog.NamespacePrefix(ns))
}

// RemoveDatabase implements §4.8 step 6 for REMOVE DATABASE.
func RemoveDatabase(ctx context.Context, d Deps, ns, db string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if _, err := d.View.GetDb(ctx, ns, db); err != nil {
		return swallowNotFound(ifExists, err)
	}
	if err := d.View.DelDb(ctx, ns, db); err != nil {
		return err
	}
	return d.View.ClrChildren(ctx, catalog.DatabasePrefix(ns, db))
}

// RemoveTable implements §4.8 step 6 for REMOVE TABLE: delete the
// definition, cascade-delete every record/field/index/event/live-query under
// it, and send Killed to every live subscription that was on the table
// (§6.6's "Killed is emitted when the underlying table is removed").
func RemoveTable(ctx context.Context, d Deps, ns, db, tb string, ifExists bool, notify KillNotifier) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if _, err := d.View.GetTb(ctx, ns, db, tb); err != nil {
		return swallowNotFound(ifExists, err)
	}

	if notify != nil {
		lives, err := d.View.AllTbLives(ctx, ns, db, tb)
		if err != nil {
			return err
		}
		for range lives {
			if err := notify(ctx, ns, db, tb); err != nil {
				return err
			}
		}
	}

	if err := d.View.DelTb(ctx, ns, db, tb); err != nil {
		return err
	}
	if err := d.View.ClrChildren(ctx, catalog.TablePrefix(ns, db, tb)); err != nil {
		return err
	}
	logger.DDL.WithDDLContext(&types.DDLContext{Ns: ns, Db: db, Tb: tb, Statement: "REMOVE TABLE"}, consts.PhaseDDL).
		Infow("table removed", "actor", d.Actor.ID)
	return nil
}

// RemoveField implements §4.8 step 6 for REMOVE FIELD.
func RemoveField(ctx context.Context, d Deps, ns, db, tb, field string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return swallowNotFound(ifExists, err)
	}
	if _, err := d.View.GetFd(ctx, ns, db, tb, field); err != nil {
		return swallowNotFound(ifExists, err)
	}
	if err := d.View.DelFd(ctx, ns, db, tb, field); err != nil {
		return err
	}
	return bumpCacheFields(ctx, d.View, ns, db, tbDef)
}

// RemoveIndex implements §4.8 step 6 for REMOVE INDEX, including its stored
// entries — an index's data lives under its own key prefix, distinct from
// the table's record prefix, so removing it does not touch any record.
func RemoveIndex(ctx context.Context, d Deps, ns, db, tb, index string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return swallowNotFound(ifExists, err)
	}
	ixDef, err := d.View.GetIx(ctx, ns, db, tb, index)
	if err != nil {
		return swallowNotFound(ifExists, err)
	}
	if err := d.View.ClrChildren(ctx, catalog.IndexEntriesPrefix(ns, db, tb, ixDef.Name)); err != nil {
		return err
	}
	if err := d.View.DelIx(ctx, ns, db, tb, index); err != nil {
		return err
	}
	return bumpCacheIndexes(ctx, d.View, ns, db, tbDef)
}

// RemoveEvent implements §4.8 step 6 for REMOVE EVENT.
func RemoveEvent(ctx context.Context, d Deps, ns, db, tb, event string, ifExists bool) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return swallowNotFound(ifExists, err)
	}
	events, err := d.View.AllTbEvents(ctx, ns, db, tbDef)
	if err != nil {
		return err
	}
	found := false
	for _, ev := range events {
		if ev.Name == event {
			found = true
			break
		}
	}
	if !found {
		return swallowNotFound(ifExists, types.ErrEvNotFound)
	}
	if err := d.View.DelEv(ctx, ns, db, tb, event); err != nil {
		return err
	}
	return bumpCacheEvents(ctx, d.View, ns, db, tbDef)
}
