package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"authserver/pkg/platform/sentinel"
)

// Encode renders m as a JSON object. Keys are written in sorted order so the
// same map always produces the same text. A nil map encodes as "{}".
func Encode(m Map) (string, error) {
	if err := m.validate("$"); err != nil {
		return "", err
	}
	if m == nil {
		m = Map{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return string(raw), nil
}

// Decode parses text produced by Encode. Anything other than exactly one JSON
// object is reported as ErrCorruptData; an unreadable blob never degrades to
// an empty map.
func Decode(text string) (Map, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("decode settings: empty document: %w", sentinel.ErrCorruptData)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode settings: %v: %w", err, sentinel.ErrCorruptData)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode settings: trailing data after document: %w", sentinel.ErrCorruptData)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode settings: top level is %s, want object: %w", describeJSON(raw), sentinel.ErrCorruptData)
	}
	v, err := fromJSON(obj)
	if err != nil {
		return nil, err
	}
	return v.m, nil
}

func fromJSON(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberOf(t)
	case []any:
		seq := make([]Value, len(t))
		for i, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return Sequence(seq...), nil
	case map[string]any:
		m := make(Map, len(t))
		for k, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Mapping(m), nil
	}
	return Value{}, fmt.Errorf("decode settings: unexpected %T: %w", raw, sentinel.ErrCorruptData)
}

// numberOf keeps integers and floats apart: a literal without fraction or
// exponent that fits int64 is an integer, everything else is a float.
func numberOf(n json.Number) (Value, error) {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("decode settings: number %q: %w", lit, sentinel.ErrCorruptData)
	}
	return Float(f), nil
}

func describeJSON(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", raw)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		return marshalFloat(v.f)
	case KindSequence:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMapping:
		return json.Marshal(v.m)
	}
	return nil, fmt.Errorf("marshal settings value: %w", sentinel.ErrUnsupportedValue)
}

// marshalFloat always emits a fraction or exponent so the value decodes as a
// float again, e.g. 2.0 is written as "2.0" rather than "2".
func marshalFloat(f float64) ([]byte, error) {
	if err := Float(f).validate("$"); err != nil {
		return nil, err
	}
	out := strconv.AppendFloat(nil, f, 'g', -1, 64)
	if !bytes.ContainsAny(out, ".eE") {
		out = append(out, '.', '0')
	}
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler with the same number rules as
// Decode.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal settings value: %v: %w", err, sentinel.ErrCorruptData)
	}
	parsed, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
