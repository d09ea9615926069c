package authorization

import (
	"fmt"
	"sort"

	"authserver/pkg/platform/sentinel"
)

// Column is an indexed lookup column of authorization_session.
type Column string

const (
	ColumnState             Column = "state"
	ColumnAuthorizationCode Column = SlotAuthorizationCode + "_value"
	ColumnAccessToken       Column = SlotAccessToken + "_value"
	ColumnRefreshToken      Column = SlotRefreshToken + "_value"
)

// maxLookupRows bounds multi-row lookups. Two rows are enough to tell a
// unique match from an ambiguous one.
const maxLookupRows = 2

func (c Column) validate() error {
	switch c {
	case ColumnState, ColumnAuthorizationCode, ColumnAccessToken, ColumnRefreshToken:
		return nil
	}
	return fmt.Errorf("lookup column %q: %w", string(c), sentinel.ErrUnsupportedValue)
}

func (r *Row) lookupValue(c Column) (string, bool) {
	switch c {
	case ColumnState:
		return r.State.String, r.State.Valid
	case ColumnAuthorizationCode:
		return r.AuthorizationCode.Value.String, r.AuthorizationCode.Value.Valid
	case ColumnAccessToken:
		return r.AccessToken.Value.String, r.AccessToken.Value.Valid
	case ColumnRefreshToken:
		return r.RefreshToken.Value.String, r.RefreshToken.Value.Valid
	}
	return "", false
}

// criteria pairs each non-empty value with its column, in a fixed order.
func criteria(state, code, access, refresh string) []criterion {
	var out []criterion
	for _, c := range []criterion{
		{ColumnState, state},
		{ColumnAuthorizationCode, code},
		{ColumnAccessToken, access},
		{ColumnRefreshToken, refresh},
	} {
		if c.value != "" {
			out = append(out, c)
		}
	}
	return out
}

type criterion struct {
	column Column
	value  string
}

func (c criterion) matches(r *Row) bool {
	v, ok := r.lookupValue(c.column)
	return ok && v == c.value
}

// checkDistinctTokens rejects a row that holds one value in two slots.
func checkDistinctTokens(r *Row) error {
	seen := make(map[string]string)
	for _, tv := range r.tokenValues() {
		if other, ok := seen[tv.value]; ok {
			return fmt.Errorf("token value shared by %s and %s slots: %w", other, tv.slot, sentinel.ErrConstraintViolation)
		}
		seen[tv.value] = tv.slot
	}
	return nil
}

func sortedIDs(rows map[string]Row) []string {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
