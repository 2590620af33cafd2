package types

import "fmt"

// RecordId is (table name, record key) per §3. The key is one of string, integer,
// uuid, array, object, or a range over keys.
type RecordId struct {
	Table string
	Key   Value
}

func NewRecordId(table string, key Value) *RecordId {
	return &RecordId{Table: table, Key: key}
}

// IsRange reports whether the key is a ValueRange (bounds on keys), the case
// the access-path planner dispatches to a key-range stream rather than a
// point lookup (§4.5 PointLookup vs range RecordId in §4.6.1).
func (r *RecordId) IsRange() bool {
	return r.Key.Kind == KindRange
}

func (r *RecordId) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%v", r.Table, r.Key)
}

// Equal compares two record ids by table and key kind/scalar payload. Used by
// unique-index at-most-one-row enforcement (§4.6.2) and by tests.
func (r *RecordId) Equal(o *RecordId) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Table != o.Table {
		return false
	}
	return r.Key.Kind == o.Key.Kind && valueScalarEqual(r.Key, o.Key)
}

func valueScalarEqual(a, b Value) bool {
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInteger:
		return a.Int == b.Int
	case KindUuid:
		return a.Uuid == b.Uuid
	default:
		return false
	}
}

// DataMode distinguishes a shared, copy-on-write-protected record payload from
// one this holder owns outright, per §3 "Mutation uses copy-on-write".
type DataMode int

const (
	DataReadOnly DataMode = iota
	DataMutable
)

// Data is the copy-on-write container wrapping a Record's Value, per §3:
// Data = ReadOnly(shared) | Mutable(owned). ReadOnly data is never mutated in
// place — Mutate() always yields a private Mutable copy first.
type Data struct {
	mode DataMode
	val  Value
}

func ReadOnlyData(v Value) Data { return Data{mode: DataReadOnly, val: v} }
func MutableData(v Value) Data  { return Data{mode: DataMutable, val: v} }

func (d Data) Value() Value { return d.val }
func (d Data) IsShared() bool { return d.mode == DataReadOnly }

// Mutate returns a Data guaranteed safe to mutate in place: if d is already
// Mutable it is returned unchanged (single owner), otherwise a private copy
// of the underlying Value is made first.
func (d Data) Mutate(fn func(Value) Value) Data {
	if d.mode == DataMutable {
		return Data{mode: DataMutable, val: fn(d.val)}
	}
	return Data{mode: DataMutable, val: fn(cloneValue(d.val))}
}

func cloneValue(v Value) Value {
	switch v.Kind {
	case KindObject:
		out := make(map[string]Value, len(v.Object))
		for k, vv := range v.Object {
			out[k] = vv
		}
		return Value{Kind: KindObject, Object: out}
	case KindArray:
		out := make([]Value, len(v.Array))
		copy(out, v.Array)
		return Value{Kind: KindArray, Array: out}
	default:
		return v
	}
}

// Record is a row keyed by a RecordId, wrapping a copy-on-write Data payload.
type Record struct {
	ID   *RecordId
	Data Data
}

func NewRecord(id *RecordId, v Value) *Record {
	return &Record{ID: id, Data: ReadOnlyData(v)}
}

// WithIDInjected returns the record's Value with its `id` field set to the
// record id, per §4.6.1 step 1 ("Inject the record id into the `id` field").
func (r *Record) WithIDInjected() Value {
	return r.Data.Value().WithField("id", RecordIdValue(r.ID))
}
