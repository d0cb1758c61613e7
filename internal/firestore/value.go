package firestore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind discriminates the wire value union. Decoding is exhaustive over
// these variants: an unrecognized wire tag is an error, never a silent
// null.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindDouble
	KindBoolean
	KindTimestamp
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one tagged wire value. The zero Value is the null variant.
type Value struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	b    bool
	ts   time.Time
	arr  []Value
	m    map[string]Value
}

// Constructors, one per variant.

func String(s string) Value       { return Value{kind: KindString, str: s} }
func Integer(n int64) Value       { return Value{kind: KindInteger, i64: n} }
func Double(f float64) Value      { return Value{kind: KindDouble, f64: f} }
func Boolean(b bool) Value        { return Value{kind: KindBoolean, b: b} }
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t.UTC()} }
func Array(vs ...Value) Value     { return Value{kind: KindArray, arr: vs} }
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: m}
}
func Null() Value { return Value{kind: KindNull} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Accessors return the variant payload and whether the value holds it.

func (v Value) AsString() (string, bool)     { return v.str, v.kind == KindString }
func (v Value) AsBool() (bool, bool)         { return v.b, v.kind == KindBoolean }
func (v Value) AsTime() (time.Time, bool)    { return v.ts, v.kind == KindTimestamp }
func (v Value) AsArray() ([]Value, bool)     { return v.arr, v.kind == KindArray }
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// AsNumber widens both numeric variants back to a single domain type.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i64), true
	case KindDouble:
		return v.f64, true
	default:
		return 0, false
	}
}

// Interface decodes the value into the plain domain representation,
// recursing through arrays and maps to any depth.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return float64(v.i64)
	case KindDouble:
		return v.f64
	case KindBoolean:
		return v.b
	case KindTimestamp:
		return v.ts
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Encode converts a plain domain value. ok=false means the field must be
// omitted from the payload entirely (nil is never sent as explicit null,
// so a partial update cannot accidentally clear a field).
func Encode(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Value{}, false
	case string:
		return String(x), true
	case bool:
		return Boolean(x), true
	case int:
		return Integer(int64(x)), true
	case int64:
		return Integer(x), true
	case float64:
		// Whole numbers take the integer variant; the distinction is
		// not preserved across a round trip.
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return Integer(int64(x)), true
		}
		return Double(x), true
	case time.Time:
		if x.IsZero() {
			return Value{}, false
		}
		return Timestamp(x), true
	case []string:
		vs := make([]Value, len(x))
		for i, s := range x {
			vs[i] = String(s)
		}
		return Array(vs...), true
	case []any:
		vs := make([]Value, 0, len(x))
		for _, e := range x {
			ev, ok := Encode(e)
			if !ok {
				ev = Null()
			}
			vs = append(vs, ev)
		}
		return Array(vs...), true
	case map[string]string:
		m := make(map[string]Value, len(x))
		for k, s := range x {
			m[k] = String(s)
		}
		return Map(m), true
	case map[string]any:
		return Map(EncodeFields(x)), true
	default:
		return Value{}, false
	}
}

// EncodeFields encodes a field map, dropping nil and unsupported values.
func EncodeFields(fields map[string]any) map[string]Value {
	out := make(map[string]Value, len(fields))
	for k, v := range fields {
		ev, ok := Encode(v)
		if !ok {
			continue
		}
		out[k] = ev
	}
	return out
}

// DecodeFields decodes a wire field map fully recursively.
func DecodeFields(fields map[string]Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v.Interface()
	}
	return out
}

// DecodeFieldsShallow decodes map-typed fields one level deep, keeping
// only string and string-array leaves. This is the hot path for the
// metadata bag; use DecodeFields for arbitrary nesting.
func DecodeFieldsShallow(fields map[string]Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if m, ok := v.AsMap(); ok {
			inner := make(map[string]any, len(m))
			for mk, mv := range m {
				switch mv.kind {
				case KindString:
					inner[mk] = mv.str
				case KindArray:
					ss := make([]string, 0, len(mv.arr))
					for _, e := range mv.arr {
						if s, ok := e.AsString(); ok {
							ss = append(ss, s)
						}
					}
					inner[mk] = ss
				}
			}
			out[k] = inner
			continue
		}
		out[k] = v.Interface()
	}
	return out
}

// wireValue mirrors the tagged JSON shape. Pointer presence, not
// truthiness, selects the variant: {"booleanValue": false} and
// {"stringValue": ""} decode to their literal values.
type wireValue struct {
	NullValue      *string    `json:"nullValue,omitempty"`
	StringValue    *string    `json:"stringValue,omitempty"`
	IntegerValue   *string    `json:"integerValue,omitempty"`
	DoubleValue    *float64   `json:"doubleValue,omitempty"`
	BooleanValue   *bool      `json:"booleanValue,omitempty"`
	TimestampValue *string    `json:"timestampValue,omitempty"`
	ArrayValue     *wireArray `json:"arrayValue,omitempty"`
	MapValue       *wireMap   `json:"mapValue,omitempty"`
}

type wireArray struct {
	Values []Value `json:"values,omitempty"`
}

type wireMap struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

// MarshalJSON emits the tagged wire representation.
func (v Value) MarshalJSON() ([]byte, error) {
	var w wireValue
	switch v.kind {
	case KindNull:
		nv := "NULL_VALUE"
		w.NullValue = &nv
	case KindString:
		w.StringValue = &v.str
	case KindInteger:
		// The wire format carries int64 as a decimal string.
		s := strconv.FormatInt(v.i64, 10)
		w.IntegerValue = &s
	case KindDouble:
		w.DoubleValue = &v.f64
	case KindBoolean:
		w.BooleanValue = &v.b
	case KindTimestamp:
		s := v.ts.Format(time.RFC3339Nano)
		w.TimestampValue = &s
	case KindArray:
		w.ArrayValue = &wireArray{Values: v.arr}
	case KindMap:
		w.MapValue = &wireMap{Fields: v.m}
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON matches exactly one wire tag. A value with no
// recognized tag is an error so that new store tags surface loudly
// instead of decoding to null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal wire value: %w", err)
	}

	switch {
	case w.StringValue != nil:
		*v = String(*w.StringValue)
	case w.IntegerValue != nil:
		n, err := strconv.ParseInt(*w.IntegerValue, 10, 64)
		if err != nil {
			return fmt.Errorf("parse integerValue %q: %w", *w.IntegerValue, err)
		}
		*v = Integer(n)
	case w.DoubleValue != nil:
		*v = Double(*w.DoubleValue)
	case w.BooleanValue != nil:
		*v = Boolean(*w.BooleanValue)
	case w.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *w.TimestampValue)
		if err != nil {
			return fmt.Errorf("parse timestampValue %q: %w", *w.TimestampValue, err)
		}
		*v = Timestamp(t)
	case w.ArrayValue != nil:
		*v = Array(w.ArrayValue.Values...)
	case w.MapValue != nil:
		fields := w.MapValue.Fields
		if fields == nil {
			fields = map[string]Value{}
		}
		*v = Map(fields)
	case w.NullValue != nil:
		*v = Null()
	default:
		return fmt.Errorf("unmarshal wire value: no recognized type tag in %s", string(data))
	}
	return nil
}
