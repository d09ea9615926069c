// Package strings holds the set and list helpers shared by request
// normalization and the column codecs.
package strings

import (
	"strings"
)

// Dedupe removes duplicates from a slice without altering the elements.
// Order of first occurrence is preserved.
func Dedupe(values []string) []string {
	return dedupeBy(values, false, func(v string) string { return v })
}

// DedupeAndTrim trims each element, drops empty ones and removes duplicates.
//
//	DedupeAndTrim([]string{" openid ", "profile", "openid", " "})
//	// Returns: []string{"openid", "profile"}
func DedupeAndTrim(values []string) []string {
	return dedupeBy(values, true, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim for case-insensitive identifiers such
// as grant types and authentication methods.
func DedupeAndTrimLower(values []string) []string {
	return dedupeBy(values, true, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupeBy(values []string, dropEmpty bool, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(v)
		if dropEmpty && v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
