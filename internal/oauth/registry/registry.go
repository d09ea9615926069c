// Package registry maps client registrations onto client_registration rows.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authserver/internal/oauth/columns"
	"authserver/internal/oauth/models"
	"authserver/internal/oauth/store/client"
	"authserver/internal/platform/metrics"
	"authserver/pkg/platform/sentinel"
)

const storeName = "client_registration"

// RowStore is the relational store the registry writes through.
type RowStore interface {
	Upsert(ctx context.Context, row client.Row) error
	GetByID(ctx context.Context, id string) (client.Row, error)
	GetByClientID(ctx context.Context, clientID string) (client.Row, error)
}

// Registry saves and loads client registrations. It holds no state between
// calls.
type Registry struct {
	store   RowStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New constructs a Registry over store.
func New(store RowStore, opts ...Option) *Registry {
	r := &Registry{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save inserts or replaces the registration with c.ID. A ClientID already
// held by another registration fails with ErrConstraintViolation.
func (r *Registry) Save(ctx context.Context, c *models.ClientRegistration) error {
	row, err := toRow(c)
	if err != nil {
		return fmt.Errorf("save client registration: %w", err)
	}
	if err := r.store.Upsert(ctx, row); err != nil {
		return fmt.Errorf("save client registration %s: %w", c.ID, err)
	}
	return nil
}

// FindByID returns the registration with the given id, or ErrNotFound.
func (r *Registry) FindByID(ctx context.Context, id string) (*models.ClientRegistration, error) {
	row, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find client registration by id: %w", err)
	}
	return r.load(ctx, row)
}

// FindByClientID returns the registration with the given client_id, or
// ErrNotFound.
func (r *Registry) FindByClientID(ctx context.Context, clientID string) (*models.ClientRegistration, error) {
	row, err := r.store.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("find client registration by client_id: %w", err)
	}
	return r.load(ctx, row)
}

func (r *Registry) load(ctx context.Context, row client.Row) (*models.ClientRegistration, error) {
	c, err := fromRow(row)
	if err != nil {
		if errors.Is(err, sentinel.ErrCorruptData) {
			r.metrics.IncrementCorruptRecord(storeName)
			r.logger.ErrorContext(ctx, "client registration has unreadable data",
				"id", row.ID,
				"client_id", row.ClientID,
				"error", err,
			)
		}
		return nil, fmt.Errorf("load client registration %s: %w", row.ID, err)
	}
	return c, nil
}

func toRow(c *models.ClientRegistration) (client.Row, error) {
	if c == nil {
		return client.Row{}, fmt.Errorf("nil registration: %w", sentinel.ErrUnsupportedValue)
	}
	if c.ID == "" {
		return client.Row{}, fmt.Errorf("id is required: %w", sentinel.ErrUnsupportedValue)
	}
	if c.ClientID == "" {
		return client.Row{}, fmt.Errorf("client_id is required: %w", sentinel.ErrUnsupportedValue)
	}

	for _, f := range []struct {
		column, value string
		capacity      int
	}{
		{"id", c.ID, columns.IDCapacity},
		{"client_id", c.ClientID, columns.IDCapacity},
		{"client_secret", c.ClientSecret, columns.SecretCapacity},
		{"client_name", c.ClientName, columns.NameCapacity},
	} {
		if err := columns.CheckCapacity(f.column, f.value, f.capacity); err != nil {
			return client.Row{}, err
		}
	}

	row := client.Row{
		ID:                    c.ID,
		ClientID:              c.ClientID,
		ClientIDIssuedAt:      columns.NullMicros(c.ClientIDIssuedAt),
		ClientSecret:          columns.NullString(c.ClientSecret),
		ClientSecretExpiresAt: columns.NullMicros(c.ClientSecretExpiresAt),
		ClientName:            c.ClientName,
	}

	var err error
	sets := []struct {
		column string
		set    models.Set
		dst    *string
	}{
		{"client_authentication_methods", c.AuthenticationMethods, &row.AuthenticationMethods},
		{"authorization_grant_types", c.GrantTypes, &row.GrantTypes},
		{"redirect_uris", c.RedirectURIs, &row.RedirectURIs},
		{"post_logout_redirect_uris", c.PostLogoutRedirectURIs, &row.PostLogoutRedirectURIs},
		{"scopes", c.Scopes, &row.Scopes},
	}
	for _, s := range sets {
		if *s.dst, err = columns.EncodeSet(s.column, s.set); err != nil {
			return client.Row{}, err
		}
	}

	if row.ClientSettings, err = columns.EncodeSettings("client_settings", c.ClientSettings, columns.SettingsCapacity); err != nil {
		return client.Row{}, err
	}
	if row.TokenSettings, err = columns.EncodeSettings("token_settings", c.TokenSettings, columns.SettingsCapacity); err != nil {
		return client.Row{}, err
	}
	return row, nil
}

func fromRow(row client.Row) (*models.ClientRegistration, error) {
	clientSettings, err := columns.DecodeSettings("client_settings", row.ClientSettings)
	if err != nil {
		return nil, err
	}
	tokenSettings, err := columns.DecodeSettings("token_settings", row.TokenSettings)
	if err != nil {
		return nil, err
	}

	return &models.ClientRegistration{
		ID:                     row.ID,
		ClientID:               row.ClientID,
		ClientIDIssuedAt:       columns.TimeFromNull(row.ClientIDIssuedAt),
		ClientSecret:           row.ClientSecret.String,
		ClientSecretExpiresAt:  columns.TimeFromNull(row.ClientSecretExpiresAt),
		ClientName:             row.ClientName,
		AuthenticationMethods:  columns.DecodeSet(row.AuthenticationMethods),
		GrantTypes:             columns.DecodeSet(row.GrantTypes),
		RedirectURIs:           columns.DecodeSet(row.RedirectURIs),
		PostLogoutRedirectURIs: columns.DecodeSet(row.PostLogoutRedirectURIs),
		Scopes:                 columns.DecodeSet(row.Scopes),
		ClientSettings:         clientSettings,
		TokenSettings:          tokenSettings,
	}, nil
}
