package gormkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glogger "gorm.io/gorm/logger"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New("sqlite", "file::memory:?cache=shared", glogger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetDel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, []byte("/a/1"), []byte("one")))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxReadOptimistic)
	require.NoError(t, err)
	v, err := tx.Get(ctx, []byte("/a/1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.Del(ctx, []byte("/a/1")))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxReadOptimistic)
	require.NoError(t, err)
	v, err = tx.Get(ctx, []byte("/a/1"))
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, tx.Commit(ctx))
}

func TestPutConditional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.PutConditional(ctx, []byte("/b/1"), []byte("v1"), nil))
	err = tx.PutConditional(ctx, []byte("/b/1"), []byte("v2"), nil)
	assert.ErrorIs(t, err, types.ErrTxConditionNotMet)
	require.NoError(t, tx.PutConditional(ctx, []byte("/b/1"), []byte("v2"), []byte("v1")))
	require.NoError(t, tx.Commit(ctx))
}

func TestClrPrefixAndStream(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, []byte("/tb/1"), []byte("a")))
	require.NoError(t, tx.Put(ctx, []byte("/tb/2"), []byte("b")))
	require.NoError(t, tx.Put(ctx, []byte("/other/1"), []byte("c")))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxReadOptimistic)
	require.NoError(t, err)
	it, err := tx.StreamKeysVals(ctx, kvs.PrefixRange([]byte("/tb/")), kvs.CacheReadOnly, consts.Forward)
	require.NoError(t, err)
	var got []string
	for it.Next(ctx) {
		got = append(got, string(it.KeyValue().Key))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"/tb/1", "/tb/2"}, got)
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.Clr(ctx, []byte("/tb/")))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, consts.TxReadOptimistic)
	require.NoError(t, err)
	v, err := tx.Get(ctx, []byte("/tb/1"))
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = tx.Get(ctx, []byte("/other/1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), v)
	require.NoError(t, tx.Commit(ctx))
}

func TestCommitTwiceFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx, consts.TxWriteOptimistic)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), types.ErrTxFinished)
}

func TestReadonlyTransactionRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx, consts.TxReadOptimistic)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Put(ctx, []byte("/x"), []byte("y")), types.ErrTxReadonly)
	require.NoError(t, tx.Cancel(ctx))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "", glogger.Discard)
	assert.Error(t, err)
}
