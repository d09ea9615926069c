package authorization

//go:generate mockgen -source=authorization.go -destination=mocks/mocks.go -package=mocks RowStore

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"authserver/internal/oauth/authorization/mocks"
	"authserver/internal/oauth/columns"
	"authserver/internal/oauth/models"
	"authserver/internal/oauth/settings"
	authstore "authserver/internal/oauth/store/authorization"
	"authserver/internal/platform/database"
	"authserver/internal/platform/metrics"
	"authserver/pkg/platform/sentinel"
)

var (
	_ RowStore = (*authstore.InMemory)(nil)
	_ RowStore = (*authstore.SQLStore)(nil)
)

func sessionDiff(want, got *models.AuthorizationSession) string {
	return cmp.Diff(want, got,
		cmp.AllowUnexported(settings.Value{}),
		cmp.Comparer(func(a, b models.Set) bool { return a.Equal(b) }),
	)
}

type StoreSuite struct {
	suite.Suite
	newRows func(t *testing.T) RowStore
	rows    RowStore
	store   *Store
	logs    *bytes.Buffer
	metrics *metrics.Metrics
	ctx     context.Context
	now     time.Time
}

func TestStoreInMemory(t *testing.T) {
	suite.Run(t, &StoreSuite{newRows: func(*testing.T) RowStore { return authstore.NewInMemory() }})
}

func TestStoreSQLite(t *testing.T) {
	suite.Run(t, &StoreSuite{newRows: func(t *testing.T) RowStore {
		ctx := context.Background()
		db, err := database.Open(ctx, database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, database.Migrate(ctx, db, database.SchemaAuthorizations))
		return authstore.NewSQL(db)
	}})
}

func TestStoreSQLiteFile(t *testing.T) {
	suite.Run(t, &StoreSuite{newRows: func(t *testing.T) RowStore {
		ctx := context.Background()
		dsn := filepath.Join(t.TempDir(), "sessions.db")
		db, err := database.Open(ctx, database.Config{Driver: database.DriverSQLite, DSN: dsn, MaxOpenConns: 10})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, database.Migrate(ctx, db, database.SchemaAuthorizations))
		return authstore.NewSQL(db)
	}})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = columns.Normalize(time.Date(2024, 3, 1, 9, 0, 0, 987654321, time.UTC))
	s.rows = s.newRows(s.T())
	s.logs = &bytes.Buffer{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = New(s.rows,
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *StoreSuite) token(kind models.TokenKind, value string, ttl time.Duration) models.Token {
	expires := s.now.Add(ttl)
	return models.NewToken(kind, value, s.now, &expires)
}

func (s *StoreSuite) fullSession(id string) *models.AuthorizationSession {
	a := models.NewAuthorizationSession(id, "client-1", "alice", models.GrantTypeAuthorizationCode)
	a.AuthorizedScopes = models.Set{"openid", "profile"}
	a.Attributes = settings.Map{
		"java.security.Principal": settings.Mapping(settings.Map{"name": settings.String("alice")}),
		"nonce":                   settings.String("n-0S6_WzA2Mj"),
		"auth_time":               settings.Int(1_709_283_600),
	}

	code := s.token(models.TokenAuthorizationCode, id+"-code", 5*time.Minute)
	code.Invalidate()
	a.SetToken(code)

	access := s.token(models.TokenAccess, id+"-access", time.Hour)
	access.TokenType = models.AccessTokenTypeBearer
	access.Scopes = models.Set{"openid", "profile"}
	access.Metadata[models.MetadataClaims] = settings.Mapping(settings.Map{
		"sub": settings.String("alice"),
		"aud": settings.Strings("client-1"),
	})
	a.SetToken(access)

	a.SetToken(s.token(models.TokenRefresh, id+"-refresh", 30*24*time.Hour))
	a.SetToken(s.token(models.TokenIDToken, id+"-id", time.Hour))
	return a
}

func (s *StoreSuite) TestRoundTrip() {
	want := s.fullSession("a1")
	s.Require().NoError(s.store.Save(s.ctx, want))

	got, err := s.store.FindByID(s.ctx, "a1")
	s.Require().NoError(err)
	s.Empty(sessionDiff(want, got))

	code, ok := got.Token(models.TokenAuthorizationCode)
	s.Require().True(ok)
	s.True(code.IsInvalidated())

	access, _ := got.Token(models.TokenAccess)
	s.Equal(models.AccessTokenTypeBearer, access.TokenType)
	s.True(access.Scopes.Contains("profile"))
}

func (s *StoreSuite) TestDeviceFlowSlots() {
	a := models.NewAuthorizationSession("dev-1", "tv-client", "bob", models.GrantTypeDeviceCode)
	device := s.token(models.TokenDeviceCode, "device-abc", 10*time.Minute)
	device.Metadata[models.MetadataInterval] = settings.Int(5)
	a.SetToken(device)
	a.SetToken(s.token(models.TokenUserCode, "WDJB-MJHT", 10*time.Minute))
	s.Require().NoError(s.store.Save(s.ctx, a))

	got, err := s.store.FindByID(s.ctx, "dev-1")
	s.Require().NoError(err)
	s.Empty(sessionDiff(a, got))
}

func (s *StoreSuite) TestFindByToken() {
	a := s.fullSession("a1")
	a.State = "state-a1"
	s.Require().NoError(s.store.Save(s.ctx, a))

	b := s.fullSession("b1")
	s.Require().NoError(s.store.Save(s.ctx, b))

	for kind, value := range map[LookupKind]string{
		LookupState:             "state-a1",
		LookupAuthorizationCode: "a1-code",
		LookupAccessToken:       "a1-access",
		LookupRefreshToken:      "a1-refresh",
	} {
		s.Run(string(kind)+" finds its session", func() {
			got, err := s.store.FindByToken(s.ctx, kind, value)
			s.Require().NoError(err)
			s.Equal("a1", got.ID)
		})
	}

	s.Run("value of another kind does not match", func() {
		_, err := s.store.FindByToken(s.ctx, LookupAccessToken, "a1-refresh")
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByToken(s.ctx, LookupRefreshToken, "a1-code")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown value", func() {
		_, err := s.store.FindByToken(s.ctx, LookupAccessToken, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("empty value", func() {
		_, err := s.store.FindByToken(s.ctx, LookupState, "")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("id tokens are not searchable", func() {
		_, err := s.store.FindByToken(s.ctx, LookupKind(models.TokenIDToken), "a1-id")
		s.ErrorIs(err, sentinel.ErrUnsupportedValue)
	})

	s.Empty(s.logs.String(), "misses are not logged")
}

// TestStateThenCode follows a session from the authorization request through
// the code being issued.
func (s *StoreSuite) TestStateThenCode() {
	a := models.NewAuthorizationSession("flow-1", "client-1", "alice", models.GrantTypeAuthorizationCode)
	a.State = "xyz-state"
	s.Require().NoError(s.store.Save(s.ctx, a))

	got, err := s.store.FindByToken(s.ctx, LookupState, "xyz-state")
	s.Require().NoError(err)
	s.Equal("flow-1", got.ID)
	s.Nil(got.Tokens)

	_, err = s.store.FindByToken(s.ctx, LookupAccessToken, "xyz-state")
	s.ErrorIs(err, sentinel.ErrNotFound)

	got.SetToken(s.token(models.TokenAuthorizationCode, "code-123", 5*time.Minute))
	s.Require().NoError(s.store.Save(s.ctx, got))

	reloaded, err := s.store.FindByID(s.ctx, "flow-1")
	s.Require().NoError(err)
	s.Equal("xyz-state", reloaded.State)
	code, ok := reloaded.Token(models.TokenAuthorizationCode)
	s.Require().True(ok)
	s.Equal("code-123", code.Value)
	s.Empty(sessionDiff(got, reloaded))
}

func (s *StoreSuite) TestRemovedSlotIsCleared() {
	a := s.fullSession("a1")
	s.Require().NoError(s.store.Save(s.ctx, a))

	a.RemoveToken(models.TokenRefresh)
	a.State = ""
	s.Require().NoError(s.store.Save(s.ctx, a))

	got, err := s.store.FindByID(s.ctx, "a1")
	s.Require().NoError(err)
	_, ok := got.Token(models.TokenRefresh)
	s.False(ok)
	s.Empty(got.State)

	_, err = s.store.FindByToken(s.ctx, LookupRefreshToken, "a1-refresh")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestTokenValueUniqueness() {
	a := models.NewAuthorizationSession("a1", "client-1", "alice", models.GrantTypeAuthorizationCode)
	a.SetToken(s.token(models.TokenAccess, "dup-access", time.Hour))
	s.Require().NoError(s.store.Save(s.ctx, a))

	s.Run("another session with the same access token", func() {
		b := models.NewAuthorizationSession("b1", "client-1", "bob", models.GrantTypeAuthorizationCode)
		b.SetToken(s.token(models.TokenAccess, "dup-access", time.Hour))
		s.ErrorIs(s.store.Save(s.ctx, b), sentinel.ErrConstraintViolation)

		_, err := s.store.FindByID(s.ctx, "b1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("same value in a different slot of another session", func() {
		b := models.NewAuthorizationSession("b1", "client-1", "bob", models.GrantTypeAuthorizationCode)
		b.SetToken(s.token(models.TokenRefresh, "dup-access", time.Hour))
		s.ErrorIs(s.store.Save(s.ctx, b), sentinel.ErrConstraintViolation)
	})

	s.Run("re-saving the same id is an update", func() {
		a.PrincipalName = "alice@example.com"
		s.Require().NoError(s.store.Save(s.ctx, a))

		got, err := s.store.FindByToken(s.ctx, LookupAccessToken, "dup-access")
		s.Require().NoError(err)
		s.Equal("alice@example.com", got.PrincipalName)
	})
}

func (s *StoreSuite) TestFindByAny() {
	a := s.fullSession("a1")
	a.State = "state-a1"
	s.Require().NoError(s.store.Save(s.ctx, a))
	b := s.fullSession("b1")
	s.Require().NoError(s.store.Save(s.ctx, b))

	s.Run("single value", func() {
		got, err := s.store.FindByAny(s.ctx, Lookup{RefreshToken: "b1-refresh"})
		s.Require().NoError(err)
		s.Equal("b1", got.ID)
	})

	s.Run("several values on one session", func() {
		got, err := s.store.FindByAny(s.ctx, Lookup{State: "state-a1", AccessToken: "a1-access", RefreshToken: "unknown"})
		s.Require().NoError(err)
		s.Equal("a1", got.ID)
	})

	s.Run("no match", func() {
		_, err := s.store.FindByAny(s.ctx, Lookup{AuthorizationCode: "nope"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("no values", func() {
		_, err := s.store.FindByAny(s.ctx, Lookup{})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Empty(s.logs.String())

	s.Run("values on different sessions", func() {
		_, err := s.store.FindByAny(s.ctx, Lookup{AccessToken: "a1-access", RefreshToken: "b1-refresh"})
		s.ErrorIs(err, sentinel.ErrConsistencyViolation)
		s.Contains(s.logs.String(), "level=ERROR")
		s.NotContains(s.logs.String(), "a1-access", "token values stay out of logs")
		s.InDelta(1, testutil.ToFloat64(s.metrics.ConsistencyViolations), 0)
	})
}

func (s *StoreSuite) TestDuplicateStateIsAmbiguous() {
	for _, id := range []string{"a1", "a2"} {
		a := models.NewAuthorizationSession(id, "client-1", "alice", models.GrantTypeAuthorizationCode)
		a.State = "reused"
		s.Require().NoError(s.store.Save(s.ctx, a))
	}

	_, err := s.store.FindByToken(s.ctx, LookupState, "reused")
	s.ErrorIs(err, sentinel.ErrConsistencyViolation)
}

func (s *StoreSuite) TestRejectedSessions() {
	tests := []struct {
		name   string
		mutate func(a *models.AuthorizationSession)
		want   error
	}{
		{"empty id", func(a *models.AuthorizationSession) { a.ID = "" }, sentinel.ErrUnsupportedValue},
		{"unknown token kind", func(a *models.AuthorizationSession) {
			a.Tokens["jwt_bearer"] = models.Token{Kind: "jwt_bearer", Value: "v"}
		}, sentinel.ErrUnsupportedValue},
		{"slot and kind disagree", func(a *models.AuthorizationSession) {
			t := a.Tokens[models.TokenRefresh]
			t.Kind = models.TokenAccess
			a.Tokens[models.TokenRefresh] = t
		}, sentinel.ErrUnsupportedValue},
		{"token without value", func(a *models.AuthorizationSession) {
			t := a.Tokens[models.TokenIDToken]
			t.Value = ""
			a.Tokens[models.TokenIDToken] = t
		}, sentinel.ErrUnsupportedValue},
		{"scopes on a refresh token", func(a *models.AuthorizationSession) {
			t := a.Tokens[models.TokenRefresh]
			t.Scopes = models.Set{"openid"}
			a.Tokens[models.TokenRefresh] = t
		}, sentinel.ErrUnsupportedValue},
		{"delimiter in scope", func(a *models.AuthorizationSession) {
			a.AuthorizedScopes = models.Set{"read,write"}
		}, sentinel.ErrUnsupportedValue},
		{"unsupported attribute", func(a *models.AuthorizationSession) {
			a.Attributes["bad"] = settings.Value{}
		}, sentinel.ErrUnsupportedValue},
		{"token value over capacity", func(a *models.AuthorizationSession) {
			t := a.Tokens[models.TokenAccess]
			t.Value = strings.Repeat("v", columns.TokenValueCapacity+1)
			a.Tokens[models.TokenAccess] = t
		}, sentinel.ErrStorage},
		{"attributes over capacity", func(a *models.AuthorizationSession) {
			a.Attributes["blob"] = settings.String(strings.Repeat("x", columns.AttributesCapacity))
		}, sentinel.ErrStorage},
		{"metadata over capacity", func(a *models.AuthorizationSession) {
			t := a.Tokens[models.TokenIDToken]
			t.Metadata = settings.Map{"claims": settings.String(strings.Repeat("c", columns.TokenMetadataCapacity))}
			a.Tokens[models.TokenIDToken] = t
		}, sentinel.ErrStorage},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			a := s.fullSession("rej-" + strings.ReplaceAll(tc.name, " ", "-"))
			id := a.ID
			tc.mutate(a)

			s.ErrorIs(s.store.Save(s.ctx, a), tc.want)

			_, err := s.store.FindByID(s.ctx, id)
			s.ErrorIs(err, sentinel.ErrNotFound, "nothing written")
		})
	}

	s.Run("nil session", func() {
		s.ErrorIs(s.store.Save(s.ctx, nil), sentinel.ErrUnsupportedValue)
	})
}

func (s *StoreSuite) TestConcurrentSaves() {
	const writers = 40

	s.Run("distinct sessions do not interfere", func() {
		var g errgroup.Group
		for i := range writers {
			g.Go(func() error {
				return s.store.Save(s.ctx, s.fullSession(fmt.Sprintf("par-%02d", i)))
			})
		}
		s.Require().NoError(g.Wait())

		for i := range writers {
			id := fmt.Sprintf("par-%02d", i)
			got, err := s.store.FindByToken(s.ctx, LookupRefreshToken, id+"-refresh")
			s.Require().NoError(err)
			s.Equal(id, got.ID)
		}
	})

	s.Run("one session rewritten concurrently keeps the last write", func() {
		var g errgroup.Group
		for i := range writers {
			g.Go(func() error {
				a := s.fullSession("shared")
				a.PrincipalName = fmt.Sprintf("writer-%02d", i)
				return s.store.Save(s.ctx, a)
			})
		}
		s.Require().NoError(g.Wait())

		got, err := s.store.FindByToken(s.ctx, LookupAccessToken, "shared-access")
		s.Require().NoError(err)
		s.Equal("shared", got.ID)
		s.True(strings.HasPrefix(got.PrincipalName, "writer-"))
	})
}

func (s *StoreSuite) TestCorruptData() {
	row := authstore.Row{
		ID:                     "bad-attrs",
		RegisteredClientID:     "client-1",
		PrincipalName:          "alice",
		AuthorizationGrantType: models.GrantTypeAuthorizationCode,
		Attributes:             `not json`,
	}
	s.Require().NoError(s.rows.Upsert(s.ctx, row))

	_, err := s.store.FindByID(s.ctx, "bad-attrs")
	s.ErrorIs(err, sentinel.ErrCorruptData)

	meta := authstore.Row{
		ID:                     "bad-meta",
		RegisteredClientID:     "client-1",
		PrincipalName:          "alice",
		AuthorizationGrantType: models.GrantTypeAuthorizationCode,
		Attributes:             `{}`,
		AccessToken: authstore.TokenColumns{
			Value:    sql.NullString{String: "meta-access", Valid: true},
			Metadata: sql.NullString{String: `{"metadata.token.invalidated":`, Valid: true},
		},
	}
	s.Require().NoError(s.rows.Upsert(s.ctx, meta))

	_, err = s.store.FindByToken(s.ctx, LookupAccessToken, "meta-access")
	s.ErrorIs(err, sentinel.ErrCorruptData)
	s.Contains(err.Error(), "access_token_metadata")

	s.Contains(s.logs.String(), "id=bad-attrs")
	s.Contains(s.logs.String(), "id=bad-meta")
	s.InDelta(2, testutil.ToFloat64(s.metrics.CorruptRecords.WithLabelValues(storeName)), 0)
}

func TestParseLookupKind(t *testing.T) {
	for _, k := range []string{"state", "authorization_code", "access_token", "refresh_token"} {
		got, err := ParseLookupKind(k)
		require.NoError(t, err)
		assert.Equal(t, LookupKind(k), got)
	}
	for _, k := range []string{"oidc_id_token", "device_code", "user_code", ""} {
		_, err := ParseLookupKind(k)
		assert.ErrorIs(t, err, sentinel.ErrUnsupportedValue, k)
	}
}

func TestEncodeRow(t *testing.T) {
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a := models.NewAuthorizationSession("a1", "client-1", "alice", models.GrantTypeClientCredentials)
	access := models.NewToken(models.TokenAccess, "at", issued, nil)
	access.TokenType = models.AccessTokenTypeBearer
	access.Scopes = models.Set{"write", "read"}
	a.SetToken(access)

	row, err := toRow(a)
	require.NoError(t, err)

	assert.False(t, row.State.Valid, "empty state is NULL")
	assert.Equal(t, `{}`, row.Attributes)
	assert.Equal(t, "at", row.AccessToken.Value.String)
	assert.Equal(t, issued.UnixMicro(), row.AccessToken.IssuedAt.Int64)
	assert.False(t, row.AccessToken.ExpiresAt.Valid)
	assert.Equal(t, `{}`, row.AccessToken.Metadata.String, "present slot always writes metadata")
	assert.Equal(t, "Bearer", row.AccessTokenType.String)
	assert.Equal(t, "read,write", row.AccessTokenScopes.String)
	assert.False(t, row.RefreshToken.Present())
	assert.False(t, row.RefreshToken.Metadata.Valid, "absent slot is all NULL")
}

func TestStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	rows := mocks.NewMockRowStore(ctrl)
	store := New(rows)
	ctx := context.Background()

	storageErr := fmt.Errorf("query: %w", sentinel.ErrStorage)

	t.Run("save", func(t *testing.T) {
		rows.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(storageErr)
		a := models.NewAuthorizationSession("a1", "c", "p", models.GrantTypeAuthorizationCode)
		require.ErrorIs(t, store.Save(ctx, a), sentinel.ErrStorage)
	})

	t.Run("find by token", func(t *testing.T) {
		rows.EXPECT().GetByColumn(gomock.Any(), authstore.ColumnRefreshToken, "rt").Return(nil, storageErr)
		_, err := store.FindByToken(ctx, LookupRefreshToken, "rt")
		require.ErrorIs(t, err, sentinel.ErrStorage)
	})

	t.Run("find by any passes every value", func(t *testing.T) {
		rows.EXPECT().GetByAny(gomock.Any(), "s", "c", "a", "r").Return(nil, storageErr)
		_, err := store.FindByAny(ctx, Lookup{State: "s", AuthorizationCode: "c", AccessToken: "a", RefreshToken: "r"})
		require.ErrorIs(t, err, sentinel.ErrStorage)
	})

	t.Run("empty lookup never reaches the store", func(t *testing.T) {
		_, err := store.FindByAny(ctx, Lookup{})
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.FindByToken(ctx, LookupAccessToken, "")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("two rows from the store are ambiguous", func(t *testing.T) {
		rows.EXPECT().GetByAny(gomock.Any(), "", "", "a", "r").Return([]authstore.Row{{ID: "x"}, {ID: "y"}}, nil)
		_, err := store.FindByAny(ctx, Lookup{AccessToken: "a", RefreshToken: "r"})
		require.ErrorIs(t, err, sentinel.ErrConsistencyViolation)
		require.ErrorContains(t, err, "x")
	})
}
