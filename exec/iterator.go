package exec

import (
	"context"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
)

// EmptyIterator returns a BatchIterator that yields no batches.
func EmptyIterator() BatchIterator { return newSliceIterator(nil) }

// SingleBatchIterator wraps an already-materialized row list as however many
// DefaultBatchSize-sized batches it takes to hold them, per §4.6's batching
// rule. Used by operators whose result is cheap to build eagerly (point
// lookups, index unions after merge, Info).
func SingleBatchIterator(rows []types.Value) BatchIterator {
	if len(rows) == 0 {
		return EmptyIterator()
	}
	b := newBatcher()
	var batches []ValueBatch
	for _, r := range rows {
		if batch, ok := b.add(r); ok {
			batches = append(batches, batch)
		}
	}
	if batch, ok := b.flush(); ok {
		batches = append(batches, batch)
	}
	return newSliceIterator(batches)
}

// RawKV is the (key,value) pair a table/index key-range stream yields,
// mirroring kvs.KeyValue so operators don't need to import kvs directly.
type RawKV struct {
	Key   []byte
	Value []byte
}

// RowDecoder turns one raw stream entry into a row, or ok=false to drop it
// (e.g. a row denied by the permission pipeline) without faulting the scan.
type RowDecoder func(ctx context.Context, kv RawKV) (types.Value, bool, error)

// streamBatchIterator pulls from a kvs.KeyValueIterator, decodes each entry
// via decode, and accumulates DefaultBatchSize-sized ValueBatches — the
// pull-based streaming path for TableScan/BTreeScan (§4.6.1, §4.6.2), as
// opposed to SingleBatchIterator's eager materialization.
type streamBatchIterator struct {
	it      kvs.KeyValueIterator
	decode  RowDecoder
	batcher *batcher
	cur     ValueBatch
	err     error
	done    bool
}

// NewStreamBatchIterator adapts a raw kvs.KeyValueIterator into a
// BatchIterator, applying decode (and its permission pipeline) to every row.
func NewStreamBatchIterator(it kvs.KeyValueIterator, decode RowDecoder) BatchIterator {
	return &streamBatchIterator{it: it, decode: decode, batcher: newBatcher()}
}

func (s *streamBatchIterator) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	for !s.done {
		if !s.it.Next(ctx) {
			s.done = true
			if err := s.it.Err(); err != nil {
				s.err = err
				return false
			}
			if batch, ok := s.batcher.flush(); ok {
				s.cur = batch
				return true
			}
			return false
		}
		kv := s.it.KeyValue()
		row, ok, err := s.decode(ctx, RawKV{Key: kv.Key, Value: kv.Value})
		if err != nil {
			s.err = err
			return false
		}
		if !ok {
			continue
		}
		if batch, ready := s.batcher.add(row); ready {
			s.cur = batch
			return true
		}
	}
	return false
}

func (s *streamBatchIterator) Batch() ValueBatch { return s.cur }
func (s *streamBatchIterator) Err() error        { return s.err }
func (s *streamBatchIterator) Close()            { s.it.Close() }
