package models

import (
	"time"

	"authserver/internal/oauth/settings"
)

// Client authentication methods, grant types and setting keys used by the
// authorization runtime. The registry stores any string; these are the
// values the runtime understands.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodPrivateKeyJWT     = "private_key_jwt"
	AuthMethodNone              = "none"

	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"

	SettingRequireProofKey             = "settings.client.require-proof-key"
	SettingRequireAuthorizationConsent = "settings.client.require-authorization-consent"
	SettingAccessTokenTimeToLive       = "settings.token.access-token-time-to-live"
	SettingRefreshTokenTimeToLive      = "settings.token.refresh-token-time-to-live"
	SettingReuseRefreshTokens          = "settings.token.reuse-refresh-tokens"
	SettingIDTokenSignatureAlgorithm   = "settings.token.id-token-signature-algorithm"
)

// ClientRegistration is the aggregate root for a registered OAuth 2.0 client.
//
// Invariants:
//   - ID is assigned at creation and never changes
//   - ClientID is unique across the registry
//   - Set fields carry membership only; order is not preserved
//   - Settings maps are never nil after a load
type ClientRegistration struct {
	ID                     string       `json:"id"`
	ClientID               string       `json:"client_id"`
	ClientIDIssuedAt       *time.Time   `json:"client_id_issued_at,omitempty"`
	ClientSecret           string       `json:"-"`
	ClientSecretExpiresAt  *time.Time   `json:"client_secret_expires_at,omitempty"`
	ClientName             string       `json:"client_name"`
	AuthenticationMethods  Set          `json:"client_authentication_methods"`
	GrantTypes             Set          `json:"authorization_grant_types"`
	RedirectURIs           Set          `json:"redirect_uris"`
	PostLogoutRedirectURIs Set          `json:"post_logout_redirect_uris"`
	Scopes                 Set          `json:"scopes"`
	ClientSettings         settings.Map `json:"client_settings"`
	TokenSettings          settings.Map `json:"token_settings"`
}

// NewClientRegistration returns a registration with empty settings maps.
func NewClientRegistration(id, clientID string) *ClientRegistration {
	return &ClientRegistration{
		ID:             id,
		ClientID:       clientID,
		ClientSettings: settings.Map{},
		TokenSettings:  settings.Map{},
	}
}

// RequiresProofKey reports the PKCE flag from client settings.
func (c *ClientRegistration) RequiresProofKey() bool {
	v, _ := c.ClientSettings.Bool(SettingRequireProofKey)
	return v
}

func (c *ClientRegistration) SupportsGrant(grantType string) bool {
	return c.GrantTypes.Contains(grantType)
}

// IsConfidential reports whether the client holds a secret.
func (c *ClientRegistration) IsConfidential() bool {
	return c.ClientSecret != ""
}

// SecretExpired reports whether the client secret has expired as of now.
// A nil expiry never expires.
func (c *ClientRegistration) SecretExpired(now time.Time) bool {
	return c.ClientSecretExpiresAt != nil && !now.Before(*c.ClientSecretExpiresAt)
}
