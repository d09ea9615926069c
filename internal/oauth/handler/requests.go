package handler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"authserver/internal/oauth/models"
	"authserver/internal/oauth/settings"
	"authserver/pkg/platform/sentinel"
	pstrings "authserver/pkg/platform/strings"
)

// ClientRequest is the body of PUT /admin/clients/{id}.
type ClientRequest struct {
	ClientID               string       `json:"client_id"`
	ClientSecret           string       `json:"client_secret,omitempty"`
	GenerateSecret         bool         `json:"generate_secret,omitempty"`
	ClientSecretExpiresAt  *time.Time   `json:"client_secret_expires_at,omitempty"`
	ClientName             string       `json:"client_name"`
	AuthenticationMethods  []string     `json:"client_authentication_methods"`
	GrantTypes             []string     `json:"authorization_grant_types"`
	RedirectURIs           []string     `json:"redirect_uris"`
	PostLogoutRedirectURIs []string     `json:"post_logout_redirect_uris"`
	Scopes                 []string     `json:"scopes"`
	ClientSettings         settings.Map `json:"client_settings"`
	TokenSettings          settings.Map `json:"token_settings"`
}

// Normalize trims whitespace and removes duplicate set members. Grant
// types and authentication methods are lowercased.
func (r *ClientRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.AuthenticationMethods = pstrings.DedupeAndTrimLower(r.AuthenticationMethods)
	r.GrantTypes = pstrings.DedupeAndTrimLower(r.GrantTypes)
	r.RedirectURIs = pstrings.DedupeAndTrim(r.RedirectURIs)
	r.PostLogoutRedirectURIs = pstrings.DedupeAndTrim(r.PostLogoutRedirectURIs)
	r.Scopes = pstrings.DedupeAndTrim(r.Scopes)
}

// Validate checks the request before it is mapped to a registration.
func (r *ClientRequest) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("client_id is required: %w", sentinel.ErrUnsupportedValue)
	}
	if r.ClientSecret != "" && r.GenerateSecret {
		return fmt.Errorf("client_secret and generate_secret are exclusive: %w", sentinel.ErrUnsupportedValue)
	}
	for _, uris := range [][]string{r.RedirectURIs, r.PostLogoutRedirectURIs} {
		for _, raw := range uris {
			u, err := url.Parse(raw)
			if err != nil || !u.IsAbs() || u.Fragment != "" {
				return fmt.Errorf("redirect uri %q must be absolute without fragment: %w", raw, sentinel.ErrUnsupportedValue)
			}
		}
	}
	return nil
}

// ToModel builds the registration. The secret is set by the handler.
func (r *ClientRequest) ToModel(id string) *models.ClientRegistration {
	c := models.NewClientRegistration(id, r.ClientID)
	c.ClientSecretExpiresAt = r.ClientSecretExpiresAt
	c.ClientName = r.ClientName
	c.AuthenticationMethods = models.NewSet(r.AuthenticationMethods...)
	c.GrantTypes = models.NewSet(r.GrantTypes...)
	c.RedirectURIs = models.NewSet(r.RedirectURIs...)
	c.PostLogoutRedirectURIs = models.NewSet(r.PostLogoutRedirectURIs...)
	c.Scopes = models.NewSet(r.Scopes...)
	if r.ClientSettings != nil {
		c.ClientSettings = r.ClientSettings
	}
	if r.TokenSettings != nil {
		c.TokenSettings = r.TokenSettings
	}
	return c
}
