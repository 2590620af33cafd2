package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
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

func rootActor() types.Actor { return types.Actor{Level: consts.LevelRoot} }

func drain(t *testing.T, it exec.BatchIterator) []types.Value {
	t.Helper()
	var rows []types.Value
	for it.Next(context.Background()) {
		rows = append(rows, it.Batch().Rows...)
	}
	require.NoError(t, it.Err())
	it.Close()
	return rows
}

func TestCreateThenScanTableSchemaless(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	alloc := func(ctx context.Context, ns, db, tb string) (types.Value, error) {
		return types.StringValue("fixed-key"), nil
	}

	create := &Create{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Actor: rootActor(), AuthDisabled: false,
		Alloc:  alloc,
		Values: []types.Value{types.ObjectValue(map[string]types.Value{"name": types.StringValue("alice")})},
	}
	it, err := create.Execute(ctx)
	require.NoError(t, err)
	created := drain(t, it)
	require.Len(t, created, 1)
	assert.Equal(t, "alice", created[0].Field("name").Str)

	pipeline := &exec.RowPipeline{View: view, Actor: rootActor(), AuthDisabled: false}
	scan := &Scan{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Pipeline: pipeline,
	}
	sit, err := scan.Execute(ctx)
	require.NoError(t, err)
	rows := drain(t, sit)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Field("name").Str)
}

func TestScanCountOnlyTakesKeysOnlyPath(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key := string(rune('a' + i))
		create := &Create{
			Ns: "test", Db: "test", Tb: "person",
			View: view, Actor: rootActor(), AuthDisabled: false,
			Alloc: func(ctx context.Context, ns, db, tb string) (types.Value, error) {
				return types.StringValue(key), nil
			},
			Values: []types.Value{types.ObjectValue(map[string]types.Value{"name": types.StringValue("p")})},
		}
		_, err := create.Execute(ctx)
		require.NoError(t, err)
	}

	pipeline := &exec.RowPipeline{View: view, Actor: rootActor(), AuthDisabled: false}
	scan := &Scan{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Pipeline: pipeline,
		CountOnly: true,
	}
	it, err := scan.Execute(ctx)
	require.NoError(t, err)
	rows := drain(t, it)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Int)
}

func TestCreateDeniedForRecordActorOnSchemalessTable(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	recordActor := types.Actor{Level: consts.LevelRecord, Ns: "test", Db: "test"}
	create := &Create{
		Ns: "test", Db: "test", Tb: "ghost",
		View: view, Actor: recordActor, AuthDisabled: false,
		Alloc:  func(ctx context.Context, ns, db, tb string) (types.Value, error) { return types.StringValue("k"), nil },
		Values: []types.Value{types.ObjectValue(map[string]types.Value{})},
	}
	_, err := create.Execute(ctx)
	assert.Error(t, err)
}

func TestCreateThenDeleteRoundtrip(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	rid := types.NewRecordId("person", types.StringValue("bob"))
	require.NoError(t, view.PutTb(ctx, "test", "test", catalog.TableDefinition{
		Name: "person", SchemaFull: false,
		Permissions: catalog.TablePermissions{
			Create: catalog.Allow(), Select: catalog.Allow(), Delete: catalog.Allow(), Update: catalog.Allow(),
		},
	}))
	require.NoError(t, view.PutRecord(ctx, "test", "test", "person", rid, types.ObjectValue(map[string]types.Value{"name": types.StringValue("bob")})))

	del := &Delete{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Actor: rootActor(),
		Targets: []types.Value{types.StringValue("bob")},
	}
	it, err := del.Execute(ctx)
	require.NoError(t, err)
	deleted := drain(t, it)
	require.Len(t, deleted, 1)
	assert.Equal(t, "bob", deleted[0].Field("name").Str)

	_, err = view.GetRecord(ctx, "test", "test", "person", types.StringValue("bob"))
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestDeleteOnMissingRecordIsNoop(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	require.NoError(t, view.PutTb(ctx, "test", "test", catalog.TableDefinition{
		Name: "person",
		Permissions: catalog.TablePermissions{
			Create: catalog.Allow(), Select: catalog.Allow(), Delete: catalog.Allow(), Update: catalog.Allow(),
		},
	}))

	del := &Delete{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Actor: rootActor(),
		Targets: []types.Value{types.StringValue("nope")},
	}
	it, err := del.Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))
}

func TestScanPointLookupMissingReturnsEmpty(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	pipeline := &exec.RowPipeline{View: view, Actor: rootActor()}
	scan := &Scan{
		Ns: "test", Db: "test", Tb: "person",
		View: view, Pipeline: pipeline,
		Source: types.NewRecordId("person", types.StringValue("nope")),
	}
	it, err := scan.Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))
}

func TestRowPipelineRedactsDeniedField(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	tbDef := &catalog.TableDefinition{
		Name: "person",
		Permissions: catalog.TablePermissions{
			Select: catalog.Allow(),
		},
	}
	require.NoError(t, view.PutTb(ctx, "test", "test", *tbDef))
	require.NoError(t, view.PutFd(ctx, "test", "test", "person", catalog.FieldDefinition{
		Table: "person", Name: "secret", SelectPermission: catalog.Deny(),
	}))

	rid := types.NewRecordId("person", types.StringValue("alice"))
	rec := types.NewRecord(rid, types.ObjectValue(map[string]types.Value{
		"name": types.StringValue("alice"), "secret": types.StringValue("shh"),
	}))

	pipeline := &exec.RowPipeline{View: view, Actor: rootActor()}
	row, ok, err := pipeline.Process(ctx, "test", "test", tbDef, rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", row.Field("name").Str)
	assert.Equal(t, types.KindNone, row.Field("secret").Kind)
}
