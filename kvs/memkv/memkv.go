// Package memkv is a non-durable, in-memory reference implementation of the
// kvs.Store/kvs.Transaction contract (§6.2), grounded on the optimistic
// multi-version pattern used by embedded stores in the retrieval pack
// (go.etcd.io/bbolt, as consumed by cuemby-warren and evalgo-org-eve): each
// write transaction captures the version of the map it started from, and a
// serializable write transaction's commit fails with ErrTxRetryable if
// another writer committed meanwhile (optimistic-mode writes are not checked) —
// the same "single writer, optimistic readers" discipline bbolt gives you for
// free via its single-writer lock, reproduced here with a version counter
// since memkv must also support concurrent *serializable* readers.
//
// memkv exists only to make the CORE (§1 in-scope) testable in isolation; it
// is explicitly a non-goal for durability/replication per §1 "Non-goals".
package memkv

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

type entry struct {
	value   []byte
	deleted bool
}

// Store is the shared, versioned keyspace. version increments on every
// committed write transaction.
type Store struct {
	mu      sync.RWMutex
	data    map[string][]byte
	version uint64
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Close() error { return nil }

func (s *Store) Begin(_ context.Context, mode consts.TxMode) (kvs.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	return &tx{
		store:       s,
		mode:        mode,
		baseVersion: s.version,
		snapshot:    snapshot,
		writes:      make(map[string]entry),
	}, nil
}

// tx is an optimistic transaction over a point-in-time snapshot of Store.
// Reads are served from snapshot+writes; writes are buffered in writes and
// only applied to Store on Commit.
type tx struct {
	mu          sync.Mutex
	store       *Store
	mode        consts.TxMode
	baseVersion uint64
	snapshot    map[string][]byte
	writes      map[string]entry
	finished    bool
}

func (t *tx) Mode() consts.TxMode { return t.mode }

func (t *tx) checkFinished() error {
	if t.finished {
		return types.ErrTxFinished
	}
	return nil
}

func (t *tx) Get(_ context.Context, key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return nil, err
	}
	if e, ok := t.writes[string(key)]; ok {
		if e.deleted {
			return nil, nil
		}
		return e.value, nil
	}
	if v, ok := t.snapshot[string(key)]; ok {
		return v, nil
	}
	return nil, nil
}

func (t *tx) Put(_ context.Context, key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	t.writes[string(key)] = entry{value: value}
	return nil
}

func (t *tx) PutConditional(ctx context.Context, key, value, expected []byte) error {
	t.mu.Lock()
	cur, ok := t.writes[string(key)]
	var curVal []byte
	var curExists bool
	if ok {
		curExists = !cur.deleted
		curVal = cur.value
	} else if v, sok := t.snapshot[string(key)]; sok {
		curExists = true
		curVal = v
	}
	t.mu.Unlock()

	if expected == nil {
		if curExists {
			return types.ErrTxConditionNotMet
		}
	} else {
		if !curExists || !bytes.Equal(curVal, expected) {
			return types.ErrTxConditionNotMet
		}
	}
	return t.Put(ctx, key, value)
}

func (t *tx) Del(_ context.Context, key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	t.writes[string(key)] = entry{deleted: true}
	return nil
}

func (t *tx) Clr(ctx context.Context, prefix []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	for k := range t.snapshot {
		if hasPrefix(k, prefix) {
			t.writes[k] = entry{deleted: true}
		}
	}
	return nil
}

func hasPrefix(k string, prefix []byte) bool {
	return len(k) >= len(prefix) && k[:len(prefix)] == string(prefix)
}

func (t *tx) StreamKeysVals(_ context.Context, r kvs.KeyRange, _ kvs.CachePolicy, dir consts.Direction) (kvs.KeyValueIterator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return nil, err
	}

	merged := make(map[string][]byte, len(t.snapshot))
	for k, v := range t.snapshot {
		merged[k] = v
	}
	for k, e := range t.writes {
		if e.deleted {
			delete(merged, k)
		} else {
			merged[k] = e.value
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		if inRange(k, r) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if dir == consts.Backward {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	kvsOut := make([]kvs.KeyValue, len(keys))
	for i, k := range keys {
		kvsOut[i] = kvs.KeyValue{Key: []byte(k), Value: merged[k]}
	}
	return &sliceIterator{items: kvsOut, pos: -1}, nil
}

func inRange(k string, r kvs.KeyRange) bool {
	if r.From != nil && k < string(r.From) {
		return false
	}
	if r.To != nil && k >= string(r.To) {
		return false
	}
	return true
}

func (t *tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFinished(); err != nil {
		return err
	}
	t.finished = true
	if !t.mode.Writable() {
		return nil
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.mode.Serializable() && t.store.version != t.baseVersion {
		logger.Kv.Debugw("transaction conflict, retry required", "base_version", t.baseVersion, "current_version", t.store.version)
		if metrics.TxRetries != nil {
			metrics.TxRetries.Inc()
		}
		return types.ErrTxRetryable
	}
	for k, e := range t.writes {
		if e.deleted {
			delete(t.store.data, k)
		} else {
			t.store.data[k] = e.value
		}
	}
	t.store.version++
	return nil
}

func (t *tx) Cancel(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return types.ErrTxFinished
	}
	t.finished = true
	return nil
}

type sliceIterator struct {
	items []kvs.KeyValue
	pos   int
	err   error
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		it.err = errors.Wrap(ctx.Err(), "iterator cancelled")
		return false
	}
	it.pos++
	return it.pos < len(it.items)
}

func (it *sliceIterator) KeyValue() kvs.KeyValue { return it.items[it.pos] }
func (it *sliceIterator) Err() error             { return it.err }
func (it *sliceIterator) Close()                 {}
