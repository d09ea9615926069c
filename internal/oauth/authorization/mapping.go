package authorization

import (
	"fmt"
	"time"

	"authserver/internal/oauth/columns"
	"authserver/internal/oauth/models"
	"authserver/internal/oauth/settings"
	authstore "authserver/internal/oauth/store/authorization"
	"authserver/pkg/platform/sentinel"
)

func toRow(a *models.AuthorizationSession) (authstore.Row, error) {
	if a == nil {
		return authstore.Row{}, fmt.Errorf("nil authorization: %w", sentinel.ErrUnsupportedValue)
	}
	if a.ID == "" {
		return authstore.Row{}, fmt.Errorf("id is required: %w", sentinel.ErrUnsupportedValue)
	}

	for _, f := range []struct {
		column, value string
		capacity      int
	}{
		{"id", a.ID, columns.IDCapacity},
		{"registered_client_id", a.RegisteredClientID, columns.IDCapacity},
		{"principal_name", a.PrincipalName, columns.NameCapacity},
		{"authorization_grant_type", a.AuthorizationGrantType, columns.IDCapacity},
		{"state", a.State, columns.StateCapacity},
	} {
		if err := columns.CheckCapacity(f.column, f.value, f.capacity); err != nil {
			return authstore.Row{}, err
		}
	}

	row := authstore.Row{
		ID:                     a.ID,
		RegisteredClientID:     a.RegisteredClientID,
		PrincipalName:          a.PrincipalName,
		AuthorizationGrantType: a.AuthorizationGrantType,
		State:                  columns.NullString(a.State),
	}

	var err error
	if row.AuthorizedScopes, err = columns.EncodeSet("authorized_scopes", a.AuthorizedScopes); err != nil {
		return authstore.Row{}, err
	}
	if row.Attributes, err = columns.EncodeSettings("attributes", a.Attributes, columns.AttributesCapacity); err != nil {
		return authstore.Row{}, err
	}

	for kind, t := range a.Tokens {
		if err := encodeToken(&row, kind, t); err != nil {
			return authstore.Row{}, err
		}
	}
	return row, nil
}

func encodeToken(row *authstore.Row, kind models.TokenKind, t models.Token) error {
	if !kind.IsValid() {
		return fmt.Errorf("token kind %q: %w", string(kind), sentinel.ErrUnsupportedValue)
	}
	if t.Kind != "" && t.Kind != kind {
		return fmt.Errorf("%s slot holds a %s token: %w", kind, t.Kind, sentinel.ErrUnsupportedValue)
	}
	if t.Value == "" {
		return fmt.Errorf("%s slot without a value: %w", kind, sentinel.ErrUnsupportedValue)
	}
	if kind != models.TokenAccess && (t.TokenType != "" || len(t.Scopes) > 0) {
		return fmt.Errorf("%s slot cannot carry a token type or scopes: %w", kind, sentinel.ErrUnsupportedValue)
	}

	prefix := string(kind)
	if err := columns.CheckCapacity(prefix+"_value", t.Value, columns.TokenValueCapacity); err != nil {
		return err
	}
	metadata, err := columns.EncodeSettings(prefix+"_metadata", t.Metadata, columns.TokenMetadataCapacity)
	if err != nil {
		return err
	}

	slot := row.Slot(prefix)
	slot.Value = columns.NullString(t.Value)
	slot.ExpiresAt = columns.NullMicros(t.ExpiresAt)
	slot.Metadata = columns.NullString(metadata)
	if !t.IssuedAt.IsZero() {
		slot.IssuedAt = columns.NullMicros(&t.IssuedAt)
	}

	if kind == models.TokenAccess {
		if err := columns.CheckCapacity("access_token_type", t.TokenType, columns.TokenTypeCapacity); err != nil {
			return err
		}
		scopes, err := columns.EncodeSet("access_token_scopes", t.Scopes)
		if err != nil {
			return err
		}
		row.AccessTokenType = columns.NullString(t.TokenType)
		row.AccessTokenScopes = columns.NullString(scopes)
	}
	return nil
}

func fromRow(row authstore.Row) (*models.AuthorizationSession, error) {
	attributes, err := columns.DecodeSettings("attributes", row.Attributes)
	if err != nil {
		return nil, err
	}

	a := &models.AuthorizationSession{
		ID:                     row.ID,
		RegisteredClientID:     row.RegisteredClientID,
		PrincipalName:          row.PrincipalName,
		AuthorizationGrantType: row.AuthorizationGrantType,
		AuthorizedScopes:       columns.DecodeSet(row.AuthorizedScopes),
		Attributes:             attributes,
		State:                  row.State.String,
	}

	for _, kind := range models.TokenKinds {
		slot := row.Slot(string(kind))
		if !slot.Present() {
			continue
		}
		t, err := decodeToken(kind, *slot)
		if err != nil {
			return nil, err
		}
		if kind == models.TokenAccess {
			t.TokenType = row.AccessTokenType.String
			t.Scopes = columns.DecodeSet(row.AccessTokenScopes.String)
		}
		a.SetToken(t)
	}
	return a, nil
}

func decodeToken(kind models.TokenKind, slot authstore.TokenColumns) (models.Token, error) {
	metadata := settings.Map{}
	if slot.Metadata.Valid {
		m, err := columns.DecodeSettings(string(kind)+"_metadata", slot.Metadata.String)
		if err != nil {
			return models.Token{}, err
		}
		metadata = m
	}

	var issuedAt time.Time
	if slot.IssuedAt.Valid {
		issuedAt = columns.FromMicros(slot.IssuedAt.Int64)
	}
	return models.Token{
		Kind:      kind,
		Value:     slot.Value.String,
		IssuedAt:  issuedAt,
		ExpiresAt: columns.TimeFromNull(slot.ExpiresAt),
		Metadata:  metadata,
	}, nil
}
