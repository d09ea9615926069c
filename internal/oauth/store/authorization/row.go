// Package authorization persists authorization_session rows and keeps the
// authorization_token_value index that makes token values unique across
// every slot of every session.
package authorization

import (
	"database/sql"
	"strings"
)

const table = "authorization_session"

// Slot names. Each is also the column prefix of the slot and the token_kind
// recorded in authorization_token_value.
const (
	SlotAuthorizationCode = "authorization_code"
	SlotAccessToken       = "access_token"
	SlotOIDCIDToken       = "oidc_id_token"
	SlotRefreshToken      = "refresh_token"
	SlotUserCode          = "user_code"
	SlotDeviceCode        = "device_code"
)

// Slots lists every token slot in column order.
var Slots = []string{
	SlotAuthorizationCode,
	SlotAccessToken,
	SlotOIDCIDToken,
	SlotRefreshToken,
	SlotUserCode,
	SlotDeviceCode,
}

// TokenColumns are the discrete columns of one token slot. An absent slot is
// all NULL. Timestamps are UTC unix microseconds.
type TokenColumns struct {
	Value     sql.NullString
	IssuedAt  sql.NullInt64
	ExpiresAt sql.NullInt64
	Metadata  sql.NullString
}

// Present reports whether the slot holds a token.
func (c TokenColumns) Present() bool {
	return c.Value.Valid
}

// Row is one authorization_session row.
type Row struct {
	ID                     string
	RegisteredClientID     string
	PrincipalName          string
	AuthorizationGrantType string
	AuthorizedScopes       string
	Attributes             string
	State                  sql.NullString

	AuthorizationCode TokenColumns
	AccessToken       TokenColumns
	OIDCIDToken       TokenColumns
	RefreshToken      TokenColumns
	UserCode          TokenColumns
	DeviceCode        TokenColumns

	AccessTokenType   sql.NullString
	AccessTokenScopes sql.NullString
}

// Slot returns the columns of the named slot, or nil for an unknown name.
func (r *Row) Slot(name string) *TokenColumns {
	switch name {
	case SlotAuthorizationCode:
		return &r.AuthorizationCode
	case SlotAccessToken:
		return &r.AccessToken
	case SlotOIDCIDToken:
		return &r.OIDCIDToken
	case SlotRefreshToken:
		return &r.RefreshToken
	case SlotUserCode:
		return &r.UserCode
	case SlotDeviceCode:
		return &r.DeviceCode
	}
	return nil
}

// tokenValue is one entry of the authorization_token_value index.
type tokenValue struct {
	slot  string
	value string
}

func (r *Row) tokenValues() []tokenValue {
	var out []tokenValue
	for _, name := range Slots {
		if c := r.Slot(name); c.Present() {
			out = append(out, tokenValue{slot: name, value: c.Value.String})
		}
	}
	return out
}

var baseColumns = []string{
	"id",
	"registered_client_id",
	"principal_name",
	"authorization_grant_type",
	"authorized_scopes",
	"attributes",
	"state",
}

var slotSuffixes = []string{"_value", "_issued_at", "_expires_at", "_metadata"}

var accessTokenColumns = []string{"access_token_type", "access_token_scopes"}

// columnNames lists every column in the order of args and dest.
var columnNames = func() []string {
	names := append([]string(nil), baseColumns...)
	for _, slot := range Slots {
		for _, suffix := range slotSuffixes {
			names = append(names, slot+suffix)
		}
	}
	return append(names, accessTokenColumns...)
}()

var columns = strings.Join(columnNames, ", ")

func (r *Row) fields() []any {
	out := []any{
		&r.ID,
		&r.RegisteredClientID,
		&r.PrincipalName,
		&r.AuthorizationGrantType,
		&r.AuthorizedScopes,
		&r.Attributes,
		&r.State,
	}
	for _, slot := range Slots {
		c := r.Slot(slot)
		out = append(out, &c.Value, &c.IssuedAt, &c.ExpiresAt, &c.Metadata)
	}
	return append(out, &r.AccessTokenType, &r.AccessTokenScopes)
}

func (r *Row) dest() []any {
	return r.fields()
}

func (r *Row) args() []any {
	ptrs := r.fields()
	out := make([]any, len(ptrs))
	for i, p := range ptrs {
		switch v := p.(type) {
		case *string:
			out[i] = *v
		case *sql.NullString:
			out[i] = *v
		case *sql.NullInt64:
			out[i] = *v
		}
	}
	return out
}
