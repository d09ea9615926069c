// Package settings holds the open-ended key/value data attached to clients
// and authorizations (client settings, token settings, session attributes,
// token metadata) and its text codec.
//
// A Value is a tagged union over the shapes the codec can store without loss:
// null, string, boolean, integer, float, sequence and mapping. Integers and
// floats are kept apart so that a token lifetime stored as 300 comes back as
// an integer and a ratio stored as 0.5 comes back as a float.
package settings

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"authserver/pkg/platform/sentinel"
)

// Kind identifies which member of the union a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindString
	KindBool
	KindInt
	KindFloat
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "invalid"
	}
}

// Map is a string-keyed collection of values.
type Map map[string]Value

// Value is one settings entry. The zero Value is invalid and cannot be encoded.
type Value struct {
	kind Kind
	s    string
	b    bool
	i    int64
	f    float64
	seq  []Value
	m    Map
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps i. It stays an integer across an encode/decode round trip.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps f. Integral floats still decode as floats.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Mapping wraps m; a nil map becomes an empty mapping.
func Mapping(m Map) Value { return Value{kind: KindMapping, m: normalizeMap(m)} }

// Sequence builds an ordered list. No arguments yield an empty list, not null.
func Sequence(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindSequence, seq: vs}
}

// Strings builds a sequence of string values.
func Strings(ss ...string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return Sequence(vs...)
}

func normalizeMap(m Map) Map {
	if m == nil {
		return Map{}
	}
	return m
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsSequence() ([]Value, bool) {
	return v.seq, v.kind == KindSequence
}
func (v Value) AsMapping() (Map, bool) { return v.m, v.kind == KindMapping }

// AsNumber widens integers to float64 for callers that do not care which
// numeric kind was stored.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Native converts the value back into plain Go types: nil, string, bool,
// int64, float64, []any and map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Native()
		}
		return out
	case KindMapping:
		return v.m.Native()
	default:
		return nil
	}
}

// Native converts every entry with Value.Native.
func (m Map) Native() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.kind {
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, e := range v.seq {
			seq[i] = e.clone()
		}
		v.seq = seq
	case KindMapping:
		v.m = v.m.Clone()
	}
	return v
}

// validate walks the value and rejects anything the text encoding cannot
// carry back unchanged.
func (v Value) validate(path string) error {
	switch v.kind {
	case KindNull, KindBool, KindInt:
		return nil
	case KindString:
		if !utf8.ValidString(v.s) {
			return fmt.Errorf("%s: string is not valid UTF-8: %w", path, sentinel.ErrUnsupportedValue)
		}
		return nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%s: non-finite float: %w", path, sentinel.ErrUnsupportedValue)
		}
		return nil
	case KindSequence:
		for i, e := range v.seq {
			if err := e.validate(fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case KindMapping:
		return v.m.validate(path)
	default:
		return fmt.Errorf("%s: invalid value: %w", path, sentinel.ErrUnsupportedValue)
	}
}

func (m Map) validate(path string) error {
	for k, v := range m {
		if !utf8.ValidString(k) {
			return fmt.Errorf("%s: key %q is not valid UTF-8: %w", path, k, sentinel.ErrUnsupportedValue)
		}
		if err := v.validate(path + "." + k); err != nil {
			return err
		}
	}
	return nil
}

// Of converts a native Go value into a Value. Supported inputs are nil,
// strings, booleans, every integer and float type, time.Duration (stored as
// integer nanoseconds), slices and arrays of supported values, maps keyed by
// string, Value and Map. Anything else is a programming error reported as
// ErrUnsupportedValue.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		if err := t.validate("$"); err != nil {
			return Value{}, err
		}
		return t, nil
	case Map:
		if err := t.validate("$"); err != nil {
			return Value{}, err
		}
		return Mapping(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case time.Duration:
		return Int(int64(t)), nil
	case []string:
		return Strings(t...), nil
	case map[string]any:
		return mapOf(t)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("unsigned integer %d overflows int64: %w", u, sentinel.ErrUnsupportedValue)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("non-finite float: %w", sentinel.ErrUnsupportedValue)
		}
		return Float(f), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		seq := make([]Value, rv.Len())
		for i := range seq {
			e, err := Of(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			seq[i] = e
		}
		return Sequence(seq...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("map key type %s: %w", rv.Type().Key(), sentinel.ErrUnsupportedValue)
		}
		if rv.IsNil() {
			return Null(), nil
		}
		m := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := Of(iter.Value().Interface())
			if err != nil {
				return Value{}, err
			}
			m[iter.Key().String()] = e
		}
		return Mapping(m), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return Of(rv.Elem().Interface())
	}
	return Value{}, fmt.Errorf("type %T: %w", x, sentinel.ErrUnsupportedValue)
}

func mapOf(in map[string]any) (Value, error) {
	if in == nil {
		return Null(), nil
	}
	m := make(Map, len(in))
	for k, x := range in {
		v, err := Of(x)
		if err != nil {
			return Value{}, fmt.Errorf("key %q: %w", k, err)
		}
		m[k] = v
	}
	return Mapping(m), nil
}

// MapOf converts a native map into a Map.
func MapOf(in map[string]any) (Map, error) {
	v, err := mapOf(in)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return Map{}, nil
	}
	return v.m, nil
}

// Set stores x under key after converting it with Of.
func (m Map) Set(key string, x any) error {
	v, err := Of(x)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	m[key] = v
	return nil
}
