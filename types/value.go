package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ValueKind tags the variant carried by a Value, per §3 "Record".
type ValueKind int

const (
	KindNone ValueKind = iota
	KindNull
	KindBool
	KindInteger
	KindFloat
	KindDecimal
	KindString
	KindBytes
	KindUuid
	KindDatetime
	KindDuration
	KindGeometry
	KindArray
	KindObject
	KindRecordId
	KindRange
	KindRegex
	KindClosure
)

// Value is the tagged variant used throughout records, expressions and permission
// predicates, per §3. Only the field matching Kind is meaningful; the zero Value
// has Kind == KindNone.
type Value struct {
	Kind ValueKind

	Bool     bool
	Int      int64
	Float    float64
	Decimal  string // stored as a canonical decimal string to avoid float precision loss
	Str      string
	Bytes    []byte
	Uuid     uuid.UUID
	Datetime time.Time
	Duration time.Duration
	Geometry any // WKT-ish payload; out of core scope beyond pass-through storage
	Array    []Value
	Object   map[string]Value
	RecordId *RecordId
	Range    *ValueRange
	Regex    *regexp.Regexp
	Closure  *Closure
}

// ValueRange is bounds on keys, used both as a RecordId key variant and as a
// KV range scan bound.
type ValueRange struct {
	From         Value
	To           Value
	IncludeFrom  bool
	IncludeTo    bool
}

// Closure is an opaque callable value; the CORE never inlines its body, it only
// threads it through PhysicalExpr.Evaluate for user-defined FUNCTION-like values.
type Closure struct {
	Params []string
	Body   any
}

func None() Value { return Value{Kind: KindNone} }
func Null() Value { return Value{Kind: KindNull} }

func BoolValue(b bool) Value  { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value  { return Value{Kind: KindInteger, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func ArrayValue(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }
func ObjectValue(o map[string]Value) Value { return Value{Kind: KindObject, Object: o} }
func RecordIdValue(rid *RecordId) Value { return Value{Kind: KindRecordId, RecordId: rid} }

// IsTruthy implements the engine's truthiness rule used by permission Conditional
// evaluation (§4.3) and boolean expression short-circuiting: None/Null/false/0/""
// are falsy, everything else (including empty arrays/objects) is truthy.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindNone, KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindInteger:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

// Field returns the Object field named name, or None if v is not an Object or
// the field is absent. Used by field-level redaction (§4.3 "Field redaction").
func (v Value) Field(name string) Value {
	if v.Kind != KindObject || v.Object == nil {
		return None()
	}
	if f, ok := v.Object[name]; ok {
		return f
	}
	return None()
}

// WithField returns a copy of v with field name set to val (Object kind only).
// Mirrors §3's copy-on-write mutation discipline at the Value level: callers
// holding a ReadOnly Data never observe this mutation.
func (v Value) WithField(name string, val Value) Value {
	if v.Kind != KindObject {
		return v
	}
	out := make(map[string]Value, len(v.Object)+1)
	for k, vv := range v.Object {
		out[k] = vv
	}
	out[name] = val
	return Value{Kind: KindObject, Object: out}
}

// WithoutField returns a copy of v with field name removed (Object kind only).
// Used by field-level redaction when select_permission is None.
func (v Value) WithoutField(name string) Value {
	if v.Kind != KindObject {
		return v
	}
	out := make(map[string]Value, len(v.Object))
	for k, vv := range v.Object {
		if k == name {
			continue
		}
		out[k] = vv
	}
	return Value{Kind: KindObject, Object: out}
}

// ToSQLLiteral renders v the way EXPLAIN output quotes a constant, per §4.4's
// to_sql() requirement.
func (v Value) ToSQLLiteral() string {
	switch v.Kind {
	case KindNone:
		return "NONE"
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDecimal:
		return v.Decimal + "dec"
	case KindString:
		return strconv.Quote(v.Str)
	case KindUuid:
		return fmt.Sprintf("u%q", v.Uuid.String())
	case KindRecordId:
		if v.RecordId != nil {
			return v.RecordId.String()
		}
		return "NONE"
	case KindArray:
		return fmt.Sprintf("[array of %d]", len(v.Array))
	case KindObject:
		return fmt.Sprintf("{object of %d fields}", len(v.Object))
	default:
		return fmt.Sprintf("<%v>", v.Kind)
	}
}

// Compare orders two scalar values for ORDER BY and index-key comparison.
// Cross-kind comparisons order by Kind, matching the engine's total order
// over Value.
func (v Value) Compare(other Value) int {
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindInteger:
		return cmpInt(v.Int, other.Int)
	case KindFloat:
		return cmpFloat(v.Float, other.Float)
	case KindString:
		return cmpString(v.Str, other.Str)
	case KindBool:
		if v.Bool == other.Bool {
			return 0
		}
		if !v.Bool {
			return -1
		}
		return 1
	case KindDatetime:
		if v.Datetime.Equal(other.Datetime) {
			return 0
		}
		if v.Datetime.Before(other.Datetime) {
			return -1
		}
		return 1
	case KindRecordId:
		if v.RecordId == nil || other.RecordId == nil {
			return 0
		}
		if v.RecordId.Table != other.RecordId.Table {
			return cmpString(v.RecordId.Table, other.RecordId.Table)
		}
		return v.RecordId.Key.Compare(other.RecordId.Key)
	default:
		return 0
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ValueEqual reports scalar/value equality used by Equality access-path
// matching and index key comparisons.
func ValueEqual(a, b Value) bool { return a.Compare(b) == 0 && a.Kind == b.Kind }

// valueWire is the JSON-serializable projection of Value, used for catalog
// record storage (§4.1 "put/del/clr for keys"). Closure is never persisted —
// closures only exist transiently inside expression evaluation.
type valueWire struct {
	Kind     ValueKind        `json:"kind"`
	Bool     bool             `json:"bool,omitempty"`
	Int      int64            `json:"int,omitempty"`
	Float    float64          `json:"float,omitempty"`
	Decimal  string           `json:"decimal,omitempty"`
	Str      string           `json:"str,omitempty"`
	Bytes    []byte           `json:"bytes,omitempty"`
	Uuid     string           `json:"uuid,omitempty"`
	Datetime time.Time        `json:"datetime,omitempty"`
	Duration time.Duration    `json:"duration,omitempty"`
	Array    []Value          `json:"array,omitempty"`
	Object   map[string]Value `json:"object,omitempty"`
	RecordId *RecordId        `json:"record_id,omitempty"`
	Range    *ValueRange      `json:"range,omitempty"`
	Regex    string           `json:"regex,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := valueWire{
		Kind: v.Kind, Bool: v.Bool, Int: v.Int, Float: v.Float, Decimal: v.Decimal,
		Str: v.Str, Bytes: v.Bytes, Datetime: v.Datetime, Duration: v.Duration,
		Array: v.Array, Object: v.Object, RecordId: v.RecordId, Range: v.Range,
	}
	if v.Kind == KindUuid {
		w.Uuid = v.Uuid.String()
	}
	if v.Kind == KindRegex && v.Regex != nil {
		w.Regex = v.Regex.String()
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Value{
		Kind: w.Kind, Bool: w.Bool, Int: w.Int, Float: w.Float, Decimal: w.Decimal,
		Str: w.Str, Bytes: w.Bytes, Datetime: w.Datetime, Duration: w.Duration,
		Array: w.Array, Object: w.Object, RecordId: w.RecordId, Range: w.Range,
	}
	if w.Kind == KindUuid && w.Uuid != "" {
		u, err := uuid.Parse(w.Uuid)
		if err != nil {
			return err
		}
		v.Uuid = u
	}
	if w.Kind == KindRegex && w.Regex != "" {
		re, err := regexp.Compile(w.Regex)
		if err != nil {
			return err
		}
		v.Regex = re
	}
	return nil
}
