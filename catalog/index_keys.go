package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/stoewer/go-strcase"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// indexPrefix is the key-range prefix for every entry of one index, mirroring
// recordPrefix's "/*" convention.
func indexPrefix(ns, db, tb, ix string) string {
	return fmt.Sprintf("%s/ix/%s/*", tbKey(ns, db, tb), strcase.SnakeCase(ix))
}

func encodeIndexCols(cols []types.Value) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = EncodeRecordKey(c)
	}
	return strings.Join(parts, "/")
}

// EncodeIndexKey renders one index entry's storage key. Per the supplement
// in SPEC_FULL.md §3.4, a non-unique index appends the record id as a
// tie-break suffix so iteration order is "(key, recordId)" by construction,
// never requiring a secondary in-memory sort (§4.6.2).
func EncodeIndexKey(ns, db, tb, ix string, cols []types.Value, rid *types.RecordId, unique bool) string {
	key := indexPrefix(ns, db, tb, ix)
	if cols := encodeIndexCols(cols); cols != "" {
		key += "/" + cols
	}
	if !unique {
		key += "/" + EncodeRecordKey(rid.Key)
	}
	return key
}

// PutIndexEntry writes (or overwrites, for a unique index) one index entry.
func (v *View) PutIndexEntry(ctx context.Context, ns, db, tb, ix string, cols []types.Value, rid *types.RecordId, unique bool) error {
	return put(ctx, v.tx, EncodeIndexKey(ns, db, tb, ix, cols, rid, unique), types.RecordIdValue(rid))
}

func (v *View) DelIndexEntry(ctx context.Context, ns, db, tb, ix string, cols []types.Value, rid *types.RecordId, unique bool) error {
	return v.tx.Del(ctx, []byte(EncodeIndexKey(ns, db, tb, ix, cols, rid, unique)))
}

// StreamIndexEquality streams every entry whose leading columns equal cols
// exactly, the IndexEquality access variant of §4.5.
func (v *View) StreamIndexEquality(ctx context.Context, ns, db, tb, ix string, cols []types.Value, dir consts.Direction) (kvs.KeyValueIterator, error) {
	base := indexPrefix(ns, db, tb, ix)
	if enc := encodeIndexCols(cols); enc != "" {
		base += "/" + enc
	}
	return v.tx.StreamKeysVals(ctx, kvs.PrefixRange([]byte(base)), kvs.CacheReadOnly, dir)
}

// StreamIndexRange streams entries whose key falls within [from,to] after a
// matched equality prefix, the IndexRange/IndexCompound access variants. The
// upper bound is inclusive: every entry whose encoded value equals to is
// streamed.
func (v *View) StreamIndexRange(ctx context.Context, ns, db, tb, ix string, prefix []types.Value, from, to types.Value, hasFrom, hasTo bool, dir consts.Direction) (kvs.KeyValueIterator, error) {
	base := indexPrefix(ns, db, tb, ix)
	if enc := encodeIndexCols(prefix); enc != "" {
		base += "/" + enc
	}
	kr := kvs.PrefixRange([]byte(base))
	if hasFrom {
		kr.From = []byte(base + "/" + EncodeRecordKey(from))
	}
	if hasTo {
		kr.To = []byte(base + "/" + EncodeRecordKey(to) + "\xff")
	}
	return v.tx.StreamKeysVals(ctx, kr, kvs.CacheReadOnly, dir)
}

// DecodeIndexValue recovers the record id stored as an index entry's value.
func DecodeIndexValue(raw []byte) (*types.RecordId, error) {
	val, err := DecodeRecordValue(raw)
	if err != nil {
		return nil, err
	}
	if val.Kind != types.KindRecordId || val.RecordId == nil {
		return nil, errors.New("corrupt index entry: expected a record id value")
	}
	return val.RecordId, nil
}
