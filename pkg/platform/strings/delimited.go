package strings

import (
	"fmt"
	"strings"

	"authserver/pkg/platform/sentinel"
)

// JoinDelimited joins set members with sep. Members are written verbatim, so
// an empty member or one containing sep cannot be represented and is rejected
// with ErrUnsupportedValue rather than silently splitting on the way back.
//
// Example:
//
//	JoinDelimited([]string{"openid", "profile"}, ",")
//	// Returns: "openid,profile"
func JoinDelimited(values []string, sep string) (string, error) {
	for _, v := range values {
		if v == "" {
			return "", fmt.Errorf("empty set member: %w", sentinel.ErrUnsupportedValue)
		}
		if strings.Contains(v, sep) {
			return "", fmt.Errorf("set member %q contains delimiter %q: %w", v, sep, sentinel.ErrUnsupportedValue)
		}
	}
	return strings.Join(values, sep), nil
}

// SplitDelimited is the inverse of JoinDelimited. An empty string yields nil,
// empty segments are dropped and duplicates collapse.
func SplitDelimited(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return Dedupe(result)
}
