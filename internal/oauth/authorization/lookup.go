package authorization

import (
	"fmt"

	authstore "authserver/internal/oauth/store/authorization"
	"authserver/pkg/platform/sentinel"
)

// LookupKind names a value a session can be found by.
type LookupKind string

const (
	LookupState             LookupKind = "state"
	LookupAuthorizationCode LookupKind = "authorization_code"
	LookupAccessToken       LookupKind = "access_token"
	LookupRefreshToken      LookupKind = "refresh_token"
)

// ParseLookupKind accepts the four lookup kinds. Other token kinds, such as
// oidc_id_token, are stored but not searchable.
func ParseLookupKind(s string) (LookupKind, error) {
	k := LookupKind(s)
	if _, err := k.column(); err != nil {
		return "", err
	}
	return k, nil
}

func (k LookupKind) column() (authstore.Column, error) {
	switch k {
	case LookupState:
		return authstore.ColumnState, nil
	case LookupAuthorizationCode:
		return authstore.ColumnAuthorizationCode, nil
	case LookupAccessToken:
		return authstore.ColumnAccessToken, nil
	case LookupRefreshToken:
		return authstore.ColumnRefreshToken, nil
	}
	return "", fmt.Errorf("lookup kind %q: %w", string(k), sentinel.ErrUnsupportedValue)
}

// Lookup holds candidate values for FindByAny. Empty fields are ignored.
type Lookup struct {
	State             string
	AuthorizationCode string
	AccessToken       string
	RefreshToken      string
}

func (l Lookup) IsEmpty() bool {
	return l == Lookup{}
}

func (l Lookup) kinds() []string {
	var out []string
	for _, f := range []struct {
		kind  LookupKind
		value string
	}{
		{LookupState, l.State},
		{LookupAuthorizationCode, l.AuthorizationCode},
		{LookupAccessToken, l.AccessToken},
		{LookupRefreshToken, l.RefreshToken},
	} {
		if f.value != "" {
			out = append(out, string(f.kind))
		}
	}
	return out
}
