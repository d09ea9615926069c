package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"authserver/internal/oauth/models"
	"authserver/internal/oauth/registry"
	"authserver/internal/oauth/secrets"
	"authserver/internal/platform/config"
	"authserver/pkg/platform/sentinel"
)

// seedClient registers the configured bootstrap client unless a client with
// the same client_id already exists.
func seedClient(ctx context.Context, clients *registry.Registry, seed config.SeedClient, log *slog.Logger) error {
	if seed.ClientID == "" {
		return nil
	}
	_, err := clients.FindByClientID(ctx, seed.ClientID)
	switch {
	case err == nil:
		log.Info("seed client already registered", "client_id", seed.ClientID)
		return nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return fmt.Errorf("look up seed client: %w", err)
	}

	c := models.NewClientRegistration(uuid.NewString(), seed.ClientID)
	c.ClientName = seed.ClientID
	c.GrantTypes = models.NewSet(models.GrantTypeAuthorizationCode, models.GrantTypeRefreshToken)
	c.RedirectURIs = models.NewSet(seed.RedirectURI)
	c.Scopes = models.NewSet("openid", "profile")
	if err := c.ClientSettings.Set(models.SettingRequireProofKey, true); err != nil {
		return err
	}
	if seed.Secret != "" {
		hashed, err := secrets.Hash(seed.Secret)
		if err != nil {
			return fmt.Errorf("hash seed client secret: %w", err)
		}
		c.ClientSecret = hashed
		c.AuthenticationMethods = models.NewSet(models.AuthMethodClientSecretBasic)
	} else {
		c.AuthenticationMethods = models.NewSet(models.AuthMethodNone)
	}

	if err := clients.Save(ctx, c); err != nil {
		return fmt.Errorf("register seed client: %w", err)
	}
	log.Info("seed client registered", "id", c.ID, "client_id", c.ClientID)
	return nil
}
