// Package kvs defines the transaction contract the query engine core consumes
// from the on-disk/networked key-value store (§6.2), plus the transaction view
// (§4.1) built on top of it. The store itself is an external collaborator —
// out of scope per §1 — but the CORE needs something to compile and test
// against, so this package also ships memkv, a non-durable reference
// implementation (see SPEC_FULL.md §1.6).
package kvs

import (
	"context"

	"github.com/forbearing/surrealkv-core/types/consts"
)

// KeyValue is a single (key,value) pair yielded by a range scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// CachePolicy mirrors the ReadOnly|ReadWrite hint passed to stream_keys_vals
// in §6.2, letting the store decide whether to populate its block cache.
type CachePolicy int

const (
	CacheReadOnly CachePolicy = iota
	CacheReadWrite
)

// KeyRange is an inclusive-from/exclusive-to byte-range, the unit every scan
// in this package operates over.
type KeyRange struct {
	From []byte
	To   []byte
}

// PrefixRange returns the range [prefix, prefix-successor) covering every key
// with the given prefix, used to implement §4.6.1's "key-range stream
// prefix(table) .. suffix(table)".
func PrefixRange(prefix []byte) KeyRange {
	return KeyRange{From: prefix, To: prefixUpperBound(prefix)}
}

func prefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	// all 0xff: no finite upper bound, caller should scan to the end of keyspace.
	return nil
}

// KeyValueIterator is a lazy, cancellable sequence of (key,value) pairs, the Go
// shape of §6.2's "async iterator of (key,value) or error".
type KeyValueIterator interface {
	// Next advances the iterator. It returns false at end-of-stream or on
	// ctx cancellation (check Err() to distinguish the two).
	Next(ctx context.Context) bool
	KeyValue() KeyValue
	Err() error
	Close()
}

// Transaction is the contract consumed by the engine core from the KV store,
// per §4.1 and §6.2. Every method may suspend (§5 "Suspension points").
type Transaction interface {
	// Mode reports whether this is a read/write, optimistic/serializable transaction.
	Mode() consts.TxMode

	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	// PutConditional performs a test-and-set: it succeeds only if the current
	// value under key equals expected (nil expected means "key absent").
	PutConditional(ctx context.Context, key, value, expected []byte) error
	Del(ctx context.Context, key []byte) error
	// Clr deletes every key in the prefix range, used by DDL cascade removal (§4.8 step 6).
	Clr(ctx context.Context, prefix []byte) error

	// StreamKeysVals opens a lazy range scan, per §6.2.
	StreamKeysVals(ctx context.Context, r KeyRange, policy CachePolicy, dir consts.Direction) (KeyValueIterator, error)

	// Commit and Cancel guarantee release on all exit paths (§4.1). A second
	// call to either after the first returns ErrTxFinished.
	Commit(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// Store opens transactions against the underlying engine.
type Store interface {
	Begin(ctx context.Context, mode consts.TxMode) (Transaction, error)
	Close() error
}
