package ddl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/kvs/memkv"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func newTestView(t *testing.T) *catalog.View {
	t.Helper()
	store := memkv.New()
	tx, err := store.Begin(context.Background(), consts.TxWriteOptimistic)
	require.NoError(t, err)
	return catalog.NewView(tx)
}

func rootDeps(view *catalog.View) Deps {
	return Deps{View: view, Actor: types.Actor{Level: consts.LevelRoot}}
}

func TestDefineNamespaceThenDatabaseThenTable(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineNamespace(ctx, deps, "test", consts.DefineDefault))
	require.NoError(t, DefineDatabase(ctx, deps, "test", "test", false, consts.DefineDefault))
	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))

	tbDef, err := view.GetTb(ctx, "test", "test", "person")
	require.NoError(t, err)
	assert.Equal(t, "person", tbDef.Name)
}

func TestDefineTableAutoDefinesParents(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))

	_, err := view.GetNs(ctx, "test")
	assert.NoError(t, err)
	_, err = view.GetDb(ctx, "test", "test")
	assert.NoError(t, err)
}

func TestDefineTableDefaultModeFailsOnCollision(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))
	err := DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault)
	assert.ErrorIs(t, err, types.ErrTbAlreadyExists)
}

func TestDefineTableIfNotExistsIsNoop(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person", SchemaFull: true}, consts.DefineDefault))
	err := DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person", SchemaFull: false}, consts.DefineIfNotExists)
	require.NoError(t, err)

	tbDef, err := view.GetTb(ctx, "test", "test", "person")
	require.NoError(t, err)
	assert.True(t, tbDef.SchemaFull) // unchanged — the collision was skipped
}

func TestDefineTableOverwriteReplaces(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person", SchemaFull: true}, consts.DefineDefault))
	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person", SchemaFull: false}, consts.DefineOverwrite))

	tbDef, err := view.GetTb(ctx, "test", "test", "person")
	require.NoError(t, err)
	assert.False(t, tbDef.SchemaFull)
}

func TestDefineFieldBumpsCacheFieldsTs(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))
	require.NoError(t, DefineField(ctx, deps, "test", "test", "person", catalog.FieldDefinition{Name: "email"}, consts.DefineDefault))

	tbDef, err := view.GetTb(ctx, "test", "test", "person")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tbDef.CacheFieldsTs)

	fields, err := view.AllTbFields(ctx, "test", "test", tbDef)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Name)
}

func TestRemoveTableCascadesRecordsAndNotifiesLives(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))
	rid := types.NewRecordId("person", types.StringValue("alice"))
	require.NoError(t, view.PutRecord(ctx, "test", "test", "person", rid, types.ObjectValue(map[string]types.Value{})))
	require.NoError(t, view.PutLiveQuery(ctx, "node-1", catalog.NodeLiveQuery{Ns: "test", Db: "test", Tb: "person", LqID: "lq-1"}, catalog.SubscriptionDefinition{}))

	var notified int
	notify := func(ctx context.Context, ns, db, tb string) error {
		notified++
		return nil
	}

	require.NoError(t, RemoveTable(ctx, deps, "test", "test", "person", false, notify))
	assert.Equal(t, 1, notified)

	_, err := view.GetTb(ctx, "test", "test", "person")
	assert.ErrorIs(t, err, types.ErrTbNotFound)
	_, err = view.GetRecord(ctx, "test", "test", "person", types.StringValue("alice"))
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestRemoveTableIfExistsSwallowsNotFound(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	err := RemoveTable(ctx, deps, "test", "test", "ghost", true, nil)
	assert.NoError(t, err)
}

func TestRemoveTableWithoutIfExistsPropagatesNotFound(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	err := RemoveTable(ctx, deps, "test", "test", "ghost", false, nil)
	assert.ErrorIs(t, err, types.ErrTbNotFound)
}

func TestDefineDeniedForViewerRole(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := Deps{
		View:  view,
		Actor: types.Actor{Level: consts.LevelDatabase, Ns: "test", Db: "test", Roles: []consts.Role{consts.RoleViewer}},
	}

	err := DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault)
	assert.Error(t, err)
}

func TestDefineAllowedForEditorRole(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := Deps{
		View:  view,
		Actor: types.Actor{Level: consts.LevelDatabase, Ns: "test", Db: "test", Roles: []consts.Role{consts.RoleEditor}},
	}

	err := DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault)
	assert.NoError(t, err)
}

func TestDefineAccessAtDatabaseLevelThenRemove(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	def := catalog.AccessMethodDefinition{Level: consts.LevelDatabase, Name: "user", Type: consts.AccessRecord}
	require.NoError(t, DefineAccess(ctx, deps, "test", "test", def, consts.DefineDefault))

	got, err := view.GetAccess(ctx, "db", "test", "test", "user")
	require.NoError(t, err)
	assert.Equal(t, consts.AccessRecord, got.Type)

	err = DefineAccess(ctx, deps, "test", "test", def, consts.DefineDefault)
	assert.ErrorIs(t, err, types.ErrAccessAlreadyExists)

	require.NoError(t, RemoveAccess(ctx, deps, "test", "test", consts.LevelDatabase, "user", false))
	_, err = view.GetAccess(ctx, "db", "test", "test", "user")
	assert.ErrorIs(t, err, types.ErrAccessNotFound)
}

func TestDefineUserAtRootLevelThenRemove(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	def := catalog.UserDefinition{Level: consts.LevelRoot, Name: "admin", Passhash: "hash"}
	require.NoError(t, DefineUser(ctx, deps, "", "", def, consts.DefineDefault))

	got, err := view.GetUser(ctx, "root", "", "", "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Passhash)

	require.NoError(t, RemoveUser(ctx, deps, "", "", consts.LevelRoot, "admin", false))
	_, err = view.GetUser(ctx, "root", "", "", "admin")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestDefineParamOverwriteReplacesValue(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineParam(ctx, deps, "test", "test", catalog.ParamDefinition{Name: "limit", Value: "10"}, consts.DefineDefault))
	require.NoError(t, DefineParam(ctx, deps, "test", "test", catalog.ParamDefinition{Name: "limit", Value: "20"}, consts.DefineOverwrite))

	got, err := view.GetParam(ctx, "test", "test", "limit")
	require.NoError(t, err)
	assert.Equal(t, "20", got.Value)

	require.NoError(t, RemoveParam(ctx, deps, "test", "test", "limit", false))
	_, err = view.GetParam(ctx, "test", "test", "limit")
	assert.ErrorIs(t, err, types.ErrParamNotFound)
}

func TestDefineAnalyzerIfNotExistsIsNoop(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineAnalyzer(ctx, deps, "test", "test", catalog.AnalyzerDefinition{Name: "simple", Tokenizers: []string{"class"}}, consts.DefineDefault))
	err := DefineAnalyzer(ctx, deps, "test", "test", catalog.AnalyzerDefinition{Name: "simple", Tokenizers: []string{"blank"}}, consts.DefineIfNotExists)
	require.NoError(t, err)

	got, err := view.GetAnalyzer(ctx, "test", "test", "simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"class"}, got.Tokenizers) // unchanged — the collision was skipped

	require.NoError(t, RemoveAnalyzer(ctx, deps, "test", "test", "simple", false))
	_, err = view.GetAnalyzer(ctx, "test", "test", "simple")
	assert.ErrorIs(t, err, types.ErrAnalyzerNF)
}

func TestAlterTableBumpsCacheTablesTs(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))
	require.NoError(t, AlterTable(ctx, deps, "test", "test", "person", func(def *catalog.TableDefinition) {
		def.SchemaFull = true
	}))

	tbDef, err := view.GetTb(ctx, "test", "test", "person")
	require.NoError(t, err)
	assert.True(t, tbDef.SchemaFull)
	assert.Equal(t, uint64(1), tbDef.CacheTablesTs)
}

func TestAlterFieldOnMissingFieldPropagatesNotFound(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineTable(ctx, deps, "test", "test", catalog.TableDefinition{Name: "person"}, consts.DefineDefault))
	err := AlterField(ctx, deps, "test", "test", "person", "ghost", func(def *catalog.FieldDefinition) {})
	assert.ErrorIs(t, err, types.ErrFcNotFound)
}

func TestAlterNamespaceUpdatesComment(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	deps := rootDeps(view)

	require.NoError(t, DefineNamespace(ctx, deps, "test", consts.DefineDefault))
	require.NoError(t, AlterNamespace(ctx, deps, "test", func(def *catalog.NamespaceDefinition) {
		def.Comment = "updated"
	}))

	nsDef, err := view.GetNs(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "updated", nsDef.Comment)
}
