package models

import (
	"slices"
	"sort"
)

// Set is an unordered collection of distinct strings. Sets built with NewSet
// are kept sorted so two sets with the same members compare equal; the empty
// set is nil.
type Set []string

func NewSet(members ...string) Set {
	if len(members) == 0 {
		return nil
	}
	out := make(Set, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (s Set) Contains(member string) bool {
	return slices.Contains(s, member)
}

// Equal reports set-membership equality, ignoring order and duplicates.
func (s Set) Equal(other Set) bool {
	return slices.Equal(NewSet(s...), NewSet(other...))
}

// Add returns a new set including member.
func (s Set) Add(member string) Set {
	return NewSet(append(slices.Clone(s), member)...)
}
