package ddl

import (
	"context"

	"github.com/forbearing/surrealkv-core/catalog"
)

// AlterNamespace implements §4.8's template for ALTER NAMESPACE: unlike
// DEFINE, the target must already exist; fn mutates the fetched definition
// in place before it is written back.
func AlterNamespace(ctx context.Context, d Deps, name string, fn func(*catalog.NamespaceDefinition)) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, name, ""); err != nil {
		return err
	}
	def, err := d.View.GetNs(ctx, name)
	if err != nil {
		return err
	}
	fn(def)
	return d.View.PutNs(ctx, *def)
}

// AlterDatabase implements §4.8's template for ALTER DATABASE.
func AlterDatabase(ctx context.Context, d Deps, ns, name string, fn func(*catalog.DatabaseDefinition)) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, name); err != nil {
		return err
	}
	def, err := d.View.GetDb(ctx, ns, name)
	if err != nil {
		return err
	}
	fn(def)
	return d.View.PutDb(ctx, ns, *def)
}

// AlterTable implements §4.8's template for ALTER TABLE. Any mutation to a
// table's shape (permissions, schemafull flag, view pipeline) bumps
// CacheTablesTs, the table definition's own cache-version stamp.
// AllTbFields/Indexes/Events key their composite reads off CacheFieldsTs/
// CacheIndexesTs/CacheEventsTs instead, which ALTER TABLE leaves untouched.
func AlterTable(ctx context.Context, d Deps, ns, db, tb string, fn func(*catalog.TableDefinition)) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	def, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return err
	}
	fn(def)
	def.CacheTablesTs++
	return d.View.PutTb(ctx, ns, db, *def)
}

// AlterField implements §4.8's template for ALTER FIELD.
func AlterField(ctx context.Context, d Deps, ns, db, tb, field string, fn func(*catalog.FieldDefinition)) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return err
	}
	def, err := d.View.GetFd(ctx, ns, db, tb, field)
	if err != nil {
		return err
	}
	fn(def)
	if err := d.View.PutFd(ctx, ns, db, tb, *def); err != nil {
		return err
	}
	return bumpCacheFields(ctx, d.View, ns, db, tbDef)
}
