package models

import (
	"time"

	"authserver/internal/oauth/settings"
)

// TokenKind names one of the six token slots of an authorization.
type TokenKind string

const (
	TokenAuthorizationCode TokenKind = "authorization_code"
	TokenAccess            TokenKind = "access_token"
	TokenRefresh           TokenKind = "refresh_token"
	TokenIDToken           TokenKind = "oidc_id_token"
	TokenDeviceCode        TokenKind = "device_code"
	TokenUserCode          TokenKind = "user_code"
)

// TokenKinds lists every slot in storage order.
var TokenKinds = []TokenKind{
	TokenAuthorizationCode,
	TokenAccess,
	TokenRefresh,
	TokenIDToken,
	TokenDeviceCode,
	TokenUserCode,
}

func (k TokenKind) IsValid() bool {
	switch k {
	case TokenAuthorizationCode, TokenAccess, TokenRefresh, TokenIDToken, TokenDeviceCode, TokenUserCode:
		return true
	}
	return false
}

func (k TokenKind) String() string { return string(k) }

// Token metadata keys written by the authorization runtime.
const (
	MetadataInvalidated = "metadata.token.invalidated"
	MetadataClaims      = "metadata.token.claims"
	MetadataInterval    = "metadata.device.polling-interval"
)

// AccessTokenTypeBearer is the only access token type the runtime issues today.
const AccessTokenTypeBearer = "Bearer"

// Token is one populated slot. Every kind shares this shape; TokenType and
// Scopes are only meaningful for access tokens and must stay empty otherwise.
type Token struct {
	Kind      TokenKind    `json:"kind"`
	Value     string       `json:"value"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Metadata  settings.Map `json:"metadata"`
	TokenType string       `json:"token_type,omitempty"`
	Scopes    Set          `json:"scopes,omitempty"`
}

// NewToken builds a slot with empty metadata.
func NewToken(kind TokenKind, value string, issuedAt time.Time, expiresAt *time.Time) Token {
	return Token{
		Kind:      kind,
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Metadata:  settings.Map{},
	}
}

// IsInvalidated reports whether the runtime has marked the token spent, e.g.
// an authorization code after its exchange.
func (t Token) IsInvalidated() bool {
	v, _ := t.Metadata.Bool(MetadataInvalidated)
	return v
}

// Invalidate marks the token spent while keeping it on the authorization for
// replay detection.
func (t *Token) Invalidate() {
	if t.Metadata == nil {
		t.Metadata = settings.Map{}
	}
	t.Metadata[MetadataInvalidated] = settings.Bool(true)
}

// IsExpired reports expiry as of now; a token without ExpiresAt never expires.
func (t Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// AuthorizationSession is the server-side record of one principal's grant to
// one client, including every token issued during its lifetime.
//
// Invariants:
//   - ID is assigned when the authorization request begins and never changes
//   - RegisteredClientID references ClientRegistration.ID; it does not own it
//   - A token value is held by at most one authorization across all slots
//   - State is empty once no redirect round trip is pending
type AuthorizationSession struct {
	ID                     string              `json:"id"`
	RegisteredClientID     string              `json:"registered_client_id"`
	PrincipalName          string              `json:"principal_name"`
	AuthorizationGrantType string              `json:"authorization_grant_type"`
	AuthorizedScopes       Set                 `json:"authorized_scopes"`
	Attributes             settings.Map        `json:"attributes"`
	State                  string              `json:"state,omitempty"`
	Tokens                 map[TokenKind]Token `json:"tokens,omitempty"`
}

// NewAuthorizationSession returns an authorization with no tokens issued yet.
func NewAuthorizationSession(id, registeredClientID, principalName, grantType string) *AuthorizationSession {
	return &AuthorizationSession{
		ID:                     id,
		RegisteredClientID:     registeredClientID,
		PrincipalName:          principalName,
		AuthorizationGrantType: grantType,
		Attributes:             settings.Map{},
	}
}

func (a *AuthorizationSession) Token(kind TokenKind) (Token, bool) {
	t, ok := a.Tokens[kind]
	return t, ok
}

// SetToken fills the slot named by t.Kind, replacing any previous token.
func (a *AuthorizationSession) SetToken(t Token) {
	if a.Tokens == nil {
		a.Tokens = make(map[TokenKind]Token, len(TokenKinds))
	}
	a.Tokens[t.Kind] = t
}

func (a *AuthorizationSession) RemoveToken(kind TokenKind) {
	delete(a.Tokens, kind)
	if len(a.Tokens) == 0 {
		a.Tokens = nil
	}
}

// TokenByValue finds the slot holding value, if any.
func (a *AuthorizationSession) TokenByValue(value string) (Token, bool) {
	if value == "" {
		return Token{}, false
	}
	for _, kind := range TokenKinds {
		if t, ok := a.Tokens[kind]; ok && t.Value == value {
			return t, true
		}
	}
	return Token{}, false
}
