// Package exec implements the streaming physical operators of C6 (§4.6):
// Scan, IndexScan, FullTextScan, KnnScan, BroadcastSource, Create, Delete,
// Info. Every operator is pull-based, mirroring kvs.KeyValueIterator's
// Next/Err/Close shape rather than Go channels, so cancellation and
// backpressure compose the same way they do over a raw key-range scan (§5
// "Suspension points").
package exec

import (
	"context"

	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// ValueBatch is a fixed-size window of owned Values, per §4.6 ("Batches are
// fixed-size windows (nominal 1000 rows)").
type ValueBatch struct {
	Rows []types.Value
}

// BatchIterator is the pull-based stream every ExecOperator.Execute returns.
type BatchIterator interface {
	// Next advances to the next non-empty batch. Returns false at
	// end-of-stream or ctx cancellation; check Err() to distinguish.
	Next(ctx context.Context) bool
	Batch() ValueBatch
	Err() error
	Close()
}

// ExecOperator is the physical-operator trait (§9 "Polymorphism" extension
// point): execute(ctx) -> stream of ValueBatch.
type ExecOperator interface {
	Execute(ctx context.Context) (BatchIterator, error)
}

// sliceBatchIterator streams a pre-materialized list of batches; used by
// operators whose whole output is cheap to build eagerly (Info, a resolved
// Array/scalar source in Scan) rather than needing real pull-based laziness.
type sliceBatchIterator struct {
	batches []ValueBatch
	pos     int
}

func newSliceIterator(batches []ValueBatch) *sliceBatchIterator {
	return &sliceBatchIterator{batches: batches, pos: -1}
}

func (it *sliceBatchIterator) Next(context.Context) bool {
	it.pos++
	return it.pos < len(it.batches)
}
func (it *sliceBatchIterator) Batch() ValueBatch { return it.batches[it.pos] }
func (it *sliceBatchIterator) Err() error        { return nil }
func (it *sliceBatchIterator) Close()            {}

// batcher accumulates rows into DefaultBatchSize windows, per §4.6's "an
// empty final batch is not emitted".
type batcher struct {
	rows []types.Value
	size int
}

func newBatcher() *batcher { return &batcher{size: consts.DefaultBatchSize} }

func (b *batcher) add(v types.Value) (ValueBatch, bool) {
	b.rows = append(b.rows, v)
	if len(b.rows) < b.size {
		return ValueBatch{}, false
	}
	out := ValueBatch{Rows: b.rows}
	b.rows = nil
	return out, true
}

func (b *batcher) flush() (ValueBatch, bool) {
	if len(b.rows) == 0 {
		return ValueBatch{}, false
	}
	out := ValueBatch{Rows: b.rows}
	b.rows = nil
	return out, true
}
