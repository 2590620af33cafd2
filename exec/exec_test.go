package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
)

func TestBatcherWindowsAtSize(t *testing.T) {
	b := &batcher{size: 3}

	var batches []ValueBatch
	for i := 0; i < 7; i++ {
		if batch, ok := b.add(types.IntValue(int64(i))); ok {
			batches = append(batches, batch)
		}
	}
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Rows, 3)
	assert.Len(t, batches[1].Rows, 3)

	final, ok := b.flush()
	require.True(t, ok)
	assert.Len(t, final.Rows, 1)
}

func TestBatcherNeverEmitsEmptyFinalBatch(t *testing.T) {
	b := &batcher{size: 3}
	_, ok := b.flush()
	assert.False(t, ok)
}

func TestSingleBatchIteratorEmptyForNoRows(t *testing.T) {
	it := SingleBatchIterator(nil)
	assert.False(t, it.Next(context.Background()))
}

func TestSingleBatchIteratorWindowsAcrossManyRows(t *testing.T) {
	rows := make([]types.Value, 2500)
	for i := range rows {
		rows[i] = types.IntValue(int64(i))
	}
	it := SingleBatchIterator(rows)

	var total int
	var batchCount int
	for it.Next(context.Background()) {
		total += len(it.Batch().Rows)
		batchCount++
	}
	assert.Equal(t, 2500, total)
	assert.Equal(t, 3, batchCount) // 1000 + 1000 + 500, per DefaultBatchSize
}

// fakeKVIterator is a minimal kvs.KeyValueIterator backed by a slice, used to
// test streamBatchIterator without a real store.
type fakeKVIterator struct {
	entries []kvs.KeyValue
	pos     int
	failAt  int // -1 disables
}

func (f *fakeKVIterator) Next(context.Context) bool {
	f.pos++
	return f.pos <= len(f.entries)
}
func (f *fakeKVIterator) KeyValue() kvs.KeyValue { return f.entries[f.pos-1] }
func (f *fakeKVIterator) Err() error             { return nil }
func (f *fakeKVIterator) Close()                 {}

func TestStreamBatchIteratorDropsRowsDecodeSkips(t *testing.T) {
	fake := &fakeKVIterator{entries: []kvs.KeyValue{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}}
	it := NewStreamBatchIterator(fake, func(ctx context.Context, kv RawKV) (types.Value, bool, error) {
		// drop the middle row, keep the others
		if string(kv.Key) == "b" {
			return types.None(), false, nil
		}
		return types.StringValue(string(kv.Key)), true, nil
	})

	var rows []types.Value
	for it.Next(context.Background()) {
		rows = append(rows, it.Batch().Rows...)
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Str)
	assert.Equal(t, "c", rows[1].Str)
}

func TestStreamBatchIteratorPropagatesDecodeError(t *testing.T) {
	fake := &fakeKVIterator{entries: []kvs.KeyValue{{Key: []byte("a"), Value: []byte("1")}}}
	boom := assert.AnError
	it := NewStreamBatchIterator(fake, func(ctx context.Context, kv RawKV) (types.Value, bool, error) {
		return types.None(), false, boom
	})
	assert.False(t, it.Next(context.Background()))
	assert.ErrorIs(t, it.Err(), boom)
}
