package authorization

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"authserver/internal/platform/database"
	"authserver/pkg/platform/sentinel"
	txcontext "authserver/pkg/platform/tx"
)

type rowStore interface {
	Upsert(ctx context.Context, row Row) error
	GetByID(ctx context.Context, id string) (Row, error)
	GetByColumn(ctx context.Context, column Column, value string) ([]Row, error)
	GetByAny(ctx context.Context, state, code, access, refresh string) ([]Row, error)
}

// StoreSuite runs the same behaviour checks against every implementation.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) rowStore
	store    rowStore
	ctx      context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) rowStore { return NewInMemory() }})
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) rowStore { return NewSQL(openSQLite(t)) }})
}

func openSQLite(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.SchemaAuthorizations))
	return db
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func str(v string) sql.NullString { return sql.NullString{String: v, Valid: true} }
func num(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }

func token(value string) TokenColumns {
	return TokenColumns{
		Value:    str(value),
		IssuedAt: num(1_700_000_000_000_000),
		Metadata: str(`{}`),
	}
}

func newRow(id string) Row {
	return Row{
		ID:                     id,
		RegisteredClientID:     "client-1",
		PrincipalName:          "alice",
		AuthorizationGrantType: "authorization_code",
		AuthorizedScopes:       "openid",
		Attributes:             `{}`,
	}
}

func (s *StoreSuite) TestRoundTrip() {
	row := newRow("a1")
	row.State = str("xyz")
	row.AccessToken = TokenColumns{
		Value:     str("at-1"),
		IssuedAt:  num(1_700_000_000_000_000),
		ExpiresAt: num(1_700_000_300_000_000),
		Metadata:  str(`{"metadata.token.invalidated":false}`),
	}
	row.AccessTokenType = str("Bearer")
	row.AccessTokenScopes = str("openid,profile")
	row.RefreshToken = token("rt-1")
	s.Require().NoError(s.store.Upsert(s.ctx, row))

	got, err := s.store.GetByID(s.ctx, "a1")
	s.Require().NoError(err)
	s.Equal(row, got)
	s.False(got.AuthorizationCode.Present(), "absent slot stays all null")

	_, err = s.store.GetByID(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestGetByColumn() {
	row := newRow("a1")
	row.State = str("st")
	row.AuthorizationCode = token("code-1")
	row.AccessToken = token("at-1")
	row.RefreshToken = token("rt-1")
	s.Require().NoError(s.store.Upsert(s.ctx, row))

	for column, value := range map[Column]string{
		ColumnState:             "st",
		ColumnAuthorizationCode: "code-1",
		ColumnAccessToken:       "at-1",
		ColumnRefreshToken:      "rt-1",
	} {
		s.Run(string(column), func() {
			rows, err := s.store.GetByColumn(s.ctx, column, value)
			s.Require().NoError(err)
			s.Require().Len(rows, 1)
			s.Equal("a1", rows[0].ID)

			rows, err = s.store.GetByColumn(s.ctx, column, "nope")
			s.Require().NoError(err)
			s.Empty(rows)
		})
	}

	s.Run("rejects columns outside the lookup set", func() {
		_, err := s.store.GetByColumn(s.ctx, Column("principal_name"), "alice")
		s.ErrorIs(err, sentinel.ErrUnsupportedValue)
	})

	s.Run("value in another slot does not match", func() {
		rows, err := s.store.GetByColumn(s.ctx, ColumnAccessToken, "rt-1")
		s.Require().NoError(err)
		s.Empty(rows)
	})
}

func (s *StoreSuite) TestTokenValueUniqueness() {
	first := newRow("a1")
	first.AccessToken = token("shared")
	s.Require().NoError(s.store.Upsert(s.ctx, first))

	s.Run("same slot in another session", func() {
		other := newRow("a2")
		other.AccessToken = token("shared")
		s.ErrorIs(s.store.Upsert(s.ctx, other), sentinel.ErrConstraintViolation)
	})

	s.Run("different slot in another session", func() {
		other := newRow("a2")
		other.RefreshToken = token("shared")
		s.ErrorIs(s.store.Upsert(s.ctx, other), sentinel.ErrConstraintViolation)

		_, err := s.store.GetByID(s.ctx, "a2")
		s.ErrorIs(err, sentinel.ErrNotFound, "failed write leaves nothing behind")
	})

	s.Run("two slots of one session", func() {
		row := newRow("a3")
		row.AccessToken = token("twice")
		row.RefreshToken = token("twice")
		s.ErrorIs(s.store.Upsert(s.ctx, row), sentinel.ErrConstraintViolation)
	})

	s.Run("re-saving the owner keeps its value", func() {
		first.PrincipalName = "alice-updated"
		s.Require().NoError(s.store.Upsert(s.ctx, first))
	})

	s.Run("dropped value is released", func() {
		first.AccessToken = token("rotated")
		s.Require().NoError(s.store.Upsert(s.ctx, first))

		other := newRow("a4")
		other.RefreshToken = token("shared")
		s.Require().NoError(s.store.Upsert(s.ctx, other))
	})
}

func (s *StoreSuite) TestGetByAny() {
	a := newRow("a1")
	a.State = str("st-a")
	a.AccessToken = token("at-a")
	s.Require().NoError(s.store.Upsert(s.ctx, a))

	b := newRow("b1")
	b.AuthorizationCode = token("code-b")
	s.Require().NoError(s.store.Upsert(s.ctx, b))

	s.Run("single match", func() {
		rows, err := s.store.GetByAny(s.ctx, "", "", "at-a", "")
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Equal("a1", rows[0].ID)
	})

	s.Run("several values on one session", func() {
		rows, err := s.store.GetByAny(s.ctx, "st-a", "", "at-a", "")
		s.Require().NoError(err)
		s.Len(rows, 1)
	})

	s.Run("values on different sessions", func() {
		rows, err := s.store.GetByAny(s.ctx, "st-a", "code-b", "", "")
		s.Require().NoError(err)
		s.Len(rows, 2)
	})

	s.Run("no match", func() {
		rows, err := s.store.GetByAny(s.ctx, "", "", "", "rt-none")
		s.Require().NoError(err)
		s.Empty(rows)
	})

	s.Run("no values", func() {
		rows, err := s.store.GetByAny(s.ctx, "", "", "", "")
		s.Require().NoError(err)
		s.Empty(rows)
	})
}

func (s *StoreSuite) TestDuplicateStatesAreBounded() {
	for _, id := range []string{"a1", "a2", "a3"} {
		row := newRow(id)
		row.State = str("same")
		s.Require().NoError(s.store.Upsert(s.ctx, row))
	}

	rows, err := s.store.GetByColumn(s.ctx, ColumnState, "same")
	s.Require().NoError(err)
	s.Len(rows, maxLookupRows)
}

func TestSQLStoreRollsBackCarriedTransaction(t *testing.T) {
	db := openSQLite(t)
	store := NewSQL(db)
	ctx := context.Background()

	sqlTx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	row := newRow("a1")
	row.AccessToken = token("at-1")
	require.NoError(t, store.Upsert(txcontext.WithTx(ctx, sqlTx), row))
	require.NoError(t, sqlTx.Rollback())

	_, err = store.GetByID(ctx, "a1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	other := newRow("a2")
	other.AccessToken = token("at-1")
	require.NoError(t, store.Upsert(ctx, other), "index entry rolled back with the row")
}

func TestSQLStoreLongTokenValues(t *testing.T) {
	store := NewSQL(openSQLite(t))
	ctx := context.Background()

	long := strings.Repeat("x", 4000)
	row := newRow("a1")
	row.AccessToken = token(long)
	require.NoError(t, store.Upsert(ctx, row))

	rows, err := store.GetByColumn(ctx, ColumnAccessToken, long)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestHashTokenIsStable(t *testing.T) {
	require.Equal(t, hashToken("abc"), hashToken("abc"))
	require.NotEqual(t, hashToken("abc"), hashToken("abd"))
	require.Len(t, hashToken("abc"), 64)
}
