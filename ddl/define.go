package ddl

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Deps bundles the permission/auth context every DDL operation needs, mirroring
// the (view, actor, authDisabled) triple exec/operators.Create/Delete take.
type Deps struct {
	View         *catalog.View
	Actor        types.Actor
	AuthDisabled bool
}

// DefineNamespace implements §4.8's template for CREATE NAMESPACE.
func DefineNamespace(ctx context.Context, d Deps, name string, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, name, ""); err != nil {
		return err
	}
	_, err := d.View.GetNs(ctx, name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrNsNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrNsAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutNs(ctx, catalog.NamespaceDefinition{Name: name})
}

// DefineDatabase implements §4.8's template for DEFINE DATABASE.
func DefineDatabase(ctx context.Context, d Deps, ns, name string, strict bool, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, name); err != nil {
		return err
	}
	if _, err := ensureNamespace(ctx, d.View, ns); err != nil {
		return err
	}

	_, err := d.View.GetDb(ctx, ns, name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrDbNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrDbAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutDb(ctx, ns, catalog.DatabaseDefinition{Name: name, Strict: strict})
}

// DefineTable implements §4.8's template for DEFINE TABLE. def.Name is
// authoritative; any ID/NamespaceID/DatabaseID in def is ignored on create.
func DefineTable(ctx context.Context, d Deps, ns, db string, def catalog.TableDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if err := ensureParents(ctx, d.View, ns, db); err != nil {
		return err
	}

	_, err := d.View.GetTb(ctx, ns, db, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrTbNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrTbAlreadyExists)
	if err != nil || skip {
		return err
	}
	if err := d.View.PutTb(ctx, ns, db, def); err != nil {
		return err
	}
	logger.DDL.WithDDLContext(&types.DDLContext{Ns: ns, Db: db, Tb: def.Name, Statement: "DEFINE TABLE"}, consts.PhaseDDL).
		Infow("table defined", "actor", d.Actor.ID)
	return nil
}

// DefineField implements §4.8's template for DEFINE FIELD.
func DefineField(ctx context.Context, d Deps, ns, db, tb string, def catalog.FieldDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return err
	}

	_, err = d.View.GetFd(ctx, ns, db, tb, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrFcNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrFcAlreadyExists)
	if err != nil || skip {
		return err
	}

	def.Table = tb
	if err := d.View.PutFd(ctx, ns, db, tb, def); err != nil {
		return err
	}
	return bumpCacheFields(ctx, d.View, ns, db, tbDef)
}

// DefineIndex implements §4.8's template for DEFINE INDEX.
func DefineIndex(ctx context.Context, d Deps, ns, db, tb string, def catalog.IndexDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return err
	}

	_, err = d.View.GetIx(ctx, ns, db, tb, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrIxNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrIxAlreadyExists)
	if err != nil || skip {
		return err
	}

	def.Table = tb
	if err := d.View.PutIx(ctx, ns, db, tb, def); err != nil {
		return err
	}
	return bumpCacheIndexes(ctx, d.View, ns, db, tbDef)
}

// DefineEvent implements §4.8's template for DEFINE EVENT. catalog.View
// exposes no single-event lookup (events are only read as a table-wide
// list), so existence is checked against that list rather than a Get call.
func DefineEvent(ctx context.Context, d Deps, ns, db, tb string, def catalog.EventDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	tbDef, err := d.View.GetTb(ctx, ns, db, tb)
	if err != nil {
		return err
	}

	events, err := d.View.AllTbEvents(ctx, ns, db, tbDef)
	if err != nil {
		return err
	}
	exists := false
	for _, ev := range events {
		if ev.Name == def.Name {
			exists = true
			break
		}
	}
	skip, err := resolveCollision(mode, exists, types.ErrEvAlreadyExists)
	if err != nil || skip {
		return err
	}

	def.Table = tb
	if err := d.View.PutEv(ctx, ns, db, tb, def); err != nil {
		return err
	}
	return bumpCacheEvents(ctx, d.View, ns, db, tbDef)
}

// levelTag maps a consts.Level to the string tag catalog.View's
// Get/Put/Del{Access,User} take, mirroring iam's levelToLookupTag.
func levelTag(level consts.Level) string {
	switch level {
	case consts.LevelRoot:
		return "root"
	case consts.LevelNamespace:
		return "ns"
	default:
		return "db"
	}
}

// scopeFor narrows (ns,db) to what checkEdit should validate an actor's
// scope against: a root-level definition isn't scoped to any ns/db, a
// namespace-level one only to ns.
func scopeFor(level consts.Level, ns, db string) (string, string) {
	switch level {
	case consts.LevelRoot:
		return "", ""
	case consts.LevelNamespace:
		return ns, ""
	default:
		return ns, db
	}
}

// DefineAccess implements §4.8's template for DEFINE ACCESS at root/
// namespace/database level, per §1's DDL scope ("user/access records").
func DefineAccess(ctx context.Context, d Deps, ns, db string, def catalog.AccessMethodDefinition, mode consts.DefineMode) error {
	scNs, scDb := scopeFor(def.Level, ns, db)
	if err := checkEdit(d.AuthDisabled, d.Actor, scNs, scDb); err != nil {
		return err
	}
	tag := levelTag(def.Level)

	_, err := d.View.GetAccess(ctx, tag, ns, db, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrAccessNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrAccessAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutAccess(ctx, ns, db, def)
}

// DefineUser implements §4.8's template for DEFINE USER at root/namespace/
// database level.
func DefineUser(ctx context.Context, d Deps, ns, db string, def catalog.UserDefinition, mode consts.DefineMode) error {
	scNs, scDb := scopeFor(def.Level, ns, db)
	if err := checkEdit(d.AuthDisabled, d.Actor, scNs, scDb); err != nil {
		return err
	}
	tag := levelTag(def.Level)

	_, err := d.View.GetUser(ctx, tag, ns, db, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrUserAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutUser(ctx, ns, db, def)
}

// DefineParam implements §4.8's template for DEFINE PARAM, a database-scoped
// $param (§1's DDL scope).
func DefineParam(ctx context.Context, d Deps, ns, db string, def catalog.ParamDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if err := ensureParents(ctx, d.View, ns, db); err != nil {
		return err
	}

	_, err := d.View.GetParam(ctx, ns, db, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrParamNotFound) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrParamAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutParam(ctx, ns, db, def)
}

// DefineAnalyzer implements §4.8's template for DEFINE ANALYZER, the
// tokenizer/filter pipeline a FULLTEXT index names (§3's IndexVariant).
func DefineAnalyzer(ctx context.Context, d Deps, ns, db string, def catalog.AnalyzerDefinition, mode consts.DefineMode) error {
	if err := checkEdit(d.AuthDisabled, d.Actor, ns, db); err != nil {
		return err
	}
	if err := ensureParents(ctx, d.View, ns, db); err != nil {
		return err
	}

	_, err := d.View.GetAnalyzer(ctx, ns, db, def.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, types.ErrAnalyzerNF) {
		return err
	}
	skip, err := resolveCollision(mode, exists, types.ErrAnalyzerAlreadyExists)
	if err != nil || skip {
		return err
	}
	return d.View.PutAnalyzer(ctx, ns, db, def)
}

// ensureParents auto-defines the namespace and database a DEFINE TABLE names,
// per §4.8 step 4 — defining a table explicitly is always allowed regardless
// of the database's Strict flag, which only gates *schemaless* writes
// (catalog.ResolveTable's nil-TableDefinition branch, consumed by
// exec/operators.Create).
func ensureParents(ctx context.Context, view *catalog.View, ns, db string) error {
	if _, err := ensureNamespace(ctx, view, ns); err != nil {
		return err
	}
	_, err := ensureDatabase(ctx, view, ns, db)
	return err
}
