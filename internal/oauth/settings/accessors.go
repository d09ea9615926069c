package settings

import "time"

// Typed lookups used by the authorization runtime. Each reports whether the
// key was present with a compatible kind; none of them panic.

// Bool reads a boolean setting.
func (m Map) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// String reads a string setting.
func (m Map) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Int reads an integer setting. Floats are reported as absent.
func (m Map) Int(key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Float accepts integers as well, since JSON producers outside this codec do
// not always keep the distinction.
func (m Map) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

// Strings returns a sequence of strings. A sequence holding any non-string
// element is reported as absent.
func (m Map) Strings(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	seq, ok := v.AsSequence()
	if !ok {
		return nil, false
	}
	out := make([]string, len(seq))
	for i, e := range seq {
		s, ok := e.AsString()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// Duration reads an integer as nanoseconds (the form Of stores a
// time.Duration in) or a string in time.ParseDuration syntax.
func (m Map) Duration(key string) (time.Duration, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	if n, ok := v.AsInt(); ok {
		return time.Duration(n), true
	}
	if s, ok := v.AsString(); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	return 0, false
}
