package handler

import (
	"time"

	"authserver/internal/oauth/models"
	"authserver/internal/oauth/settings"
)

// ClientResponse renders a registration. ClientSecret is only filled when
// the server generated the secret in this request.
type ClientResponse struct {
	*models.ClientRegistration
	Confidential bool   `json:"confidential"`
	ClientSecret string `json:"client_secret,omitempty"`
}

const redacted = "[redacted]"

// TokenView is a token slot with its value withheld.
type TokenView struct {
	Value       string       `json:"value"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Invalidated bool         `json:"invalidated"`
	Metadata    settings.Map `json:"metadata"`
	TokenType   string       `json:"token_type,omitempty"`
	Scopes      models.Set   `json:"scopes,omitempty"`
}

// AuthorizationResponse renders a session for inspection. Token values and
// state are redacted; everything else is shown as stored.
type AuthorizationResponse struct {
	ID                     string                          `json:"id"`
	RegisteredClientID     string                          `json:"registered_client_id"`
	PrincipalName          string                          `json:"principal_name"`
	AuthorizationGrantType string                          `json:"authorization_grant_type"`
	AuthorizedScopes       models.Set                      `json:"authorized_scopes"`
	Attributes             settings.Map                    `json:"attributes"`
	PendingState           bool                            `json:"pending_state"`
	Tokens                 map[models.TokenKind]*TokenView `json:"tokens"`
}

func toAuthorizationResponse(a *models.AuthorizationSession) AuthorizationResponse {
	resp := AuthorizationResponse{
		ID:                     a.ID,
		RegisteredClientID:     a.RegisteredClientID,
		PrincipalName:          a.PrincipalName,
		AuthorizationGrantType: a.AuthorizationGrantType,
		AuthorizedScopes:       a.AuthorizedScopes,
		Attributes:             a.Attributes,
		PendingState:           a.State != "",
		Tokens:                 make(map[models.TokenKind]*TokenView, len(a.Tokens)),
	}
	for kind, t := range a.Tokens {
		resp.Tokens[kind] = &TokenView{
			Value:       redacted,
			IssuedAt:    t.IssuedAt,
			ExpiresAt:   t.ExpiresAt,
			Invalidated: t.IsInvalidated(),
			Metadata:    t.Metadata,
			TokenType:   t.TokenType,
			Scopes:      t.Scopes,
		}
	}
	return resp
}
