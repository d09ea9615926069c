// Package client persists client_registration rows. It knows nothing about
// sets or settings; the registry mapper owns that encoding.
package client

import "database/sql"

const table = "client_registration"

// Row is one client_registration row. Timestamps are UTC unix microseconds.
type Row struct {
	ID                     string
	ClientID               string
	ClientIDIssuedAt       sql.NullInt64
	ClientSecret           sql.NullString
	ClientSecretExpiresAt  sql.NullInt64
	ClientName             string
	AuthenticationMethods  string
	GrantTypes             string
	RedirectURIs           string
	PostLogoutRedirectURIs string
	Scopes                 string
	ClientSettings         string
	TokenSettings          string
}

const columns = `id, client_id, client_id_issued_at, client_secret, client_secret_expires_at,
	client_name, client_authentication_methods, authorization_grant_types, redirect_uris,
	post_logout_redirect_uris, scopes, client_settings, token_settings`

func (r *Row) args() []any {
	return []any{
		r.ID, r.ClientID, r.ClientIDIssuedAt, r.ClientSecret, r.ClientSecretExpiresAt,
		r.ClientName, r.AuthenticationMethods, r.GrantTypes, r.RedirectURIs,
		r.PostLogoutRedirectURIs, r.Scopes, r.ClientSettings, r.TokenSettings,
	}
}

func (r *Row) dest() []any {
	return []any{
		&r.ID, &r.ClientID, &r.ClientIDIssuedAt, &r.ClientSecret, &r.ClientSecretExpiresAt,
		&r.ClientName, &r.AuthenticationMethods, &r.GrantTypes, &r.RedirectURIs,
		&r.PostLogoutRedirectURIs, &r.Scopes, &r.ClientSettings, &r.TokenSettings,
	}
}
