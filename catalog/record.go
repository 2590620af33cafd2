package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// EncodeRecordKey renders a record key Value as the storage-key suffix used
// by recordKey, tagged by kind so DecodeRecordKey can invert it exactly —
// §3 "RecordId ... key is one of string, integer, uuid, array, object".
func EncodeRecordKey(key types.Value) string {
	switch key.Kind {
	case types.KindString:
		return "s:" + key.Str
	case types.KindInteger:
		return "i:" + strconv.FormatInt(key.Int, 10)
	case types.KindUuid:
		return "u:" + key.Uuid.String()
	default:
		raw, _ := json.Marshal(key)
		return "b:" + base64.RawURLEncoding.EncodeToString(raw)
	}
}

// DecodeRecordKey reverses EncodeRecordKey, used by table-scan iteration to
// recover a RecordId's key from the raw storage key a range scan yields.
func DecodeRecordKey(encoded string) (types.Value, error) {
	if len(encoded) < 2 || encoded[1] != ':' {
		return types.None(), errors.New("malformed record key")
	}
	tag, rest := encoded[0], encoded[2:]
	switch tag {
	case 's':
		return types.StringValue(rest), nil
	case 'i':
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return types.None(), errors.Wrap(err, "malformed integer record key")
		}
		return types.IntValue(n), nil
	case 'u':
		u, err := uuid.Parse(rest)
		if err != nil {
			return types.None(), errors.Wrap(err, "malformed uuid record key")
		}
		return types.Value{Kind: types.KindUuid, Uuid: u}, nil
	case 'b':
		raw, err := base64.RawURLEncoding.DecodeString(rest)
		if err != nil {
			return types.None(), errors.Wrap(err, "malformed encoded record key")
		}
		var v types.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return types.None(), errors.Wrap(err, "corrupt record key payload")
		}
		return v, nil
	default:
		return types.None(), errors.Newf("unknown record key tag %q", tag)
	}
}

// GetRecord resolves one record by table and key, per §4.1's get_record.
func (v *View) GetRecord(ctx context.Context, ns, db, tb string, key types.Value) (*types.Record, error) {
	val, ok, err := get[types.Value](ctx, v.tx, recordKey(ns, db, tb, EncodeRecordKey(key)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrRecordNotFound
	}
	return types.NewRecord(types.NewRecordId(tb, key), val), nil
}

// PutRecord writes a record's Value payload under its canonical key.
func (v *View) PutRecord(ctx context.Context, ns, db, tb string, id *types.RecordId, val types.Value) error {
	return put(ctx, v.tx, recordKey(ns, db, tb, EncodeRecordKey(id.Key)), val)
}

func (v *View) DelRecord(ctx context.Context, ns, db, tb string, key types.Value) error {
	return v.tx.Del(ctx, []byte(recordKey(ns, db, tb, EncodeRecordKey(key))))
}

// StreamRecords opens a key-range scan over every record in table tb, per
// §4.6.1's "key-range stream prefix(table) .. suffix(table)".
func (v *View) StreamRecords(ctx context.Context, ns, db, tb string, dir consts.Direction) (kvs.KeyValueIterator, error) {
	return v.tx.StreamKeysVals(ctx, kvs.PrefixRange([]byte(recordPrefix(ns, db, tb))), kvs.CacheReadOnly, dir)
}

// RecordIDFromKey recovers the RecordId a raw storage key (as yielded by
// StreamRecords) addresses.
func RecordIDFromKey(ns, db, tb string, rawKey []byte) (*types.RecordId, error) {
	prefix := recordPrefix(ns, db, tb) + "/"
	s := string(rawKey)
	if !strings.HasPrefix(s, prefix) {
		return nil, errors.Newf("key %q is not a record of table %q", s, tb)
	}
	key, err := DecodeRecordKey(s[len(prefix):])
	if err != nil {
		return nil, err
	}
	return types.NewRecordId(tb, key), nil
}

// DecodeRecordValue unmarshals a raw stream value into a record Value.
func DecodeRecordValue(raw []byte) (types.Value, error) {
	var v types.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return types.None(), errors.Wrap(err, "corrupt record payload")
	}
	return v, nil
}
