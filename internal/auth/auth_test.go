package auth

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwanhq/diwan/internal/models"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewService(sqlx.NewDb(mockDB, "sqlmock"), 30*24*time.Hour), mock
}

func userColumns() []string {
	return []string{"id", "username", "password_hash", "full_name", "entity_id", "entity_name", "created_at", "created_by", "role"}
}

func TestLoginIssuesSession(t *testing.T) {
	s, mock := newTestService(t)

	hash, err := s.HashPassword("s3cret")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT u.id, u.username").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(int64(7), "alice", hash, "Alice A", "ent-1", "Ministry", time.Now(), nil, "admin"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ident, err := s.Login("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), ident.UserID)
	assert.Equal(t, "admin", ident.Role)
	assert.True(t, ident.IsAdmin())
	assert.NotEmpty(t, ident.SessionToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	s, mock := newTestService(t)

	hash, err := s.HashPassword("correct")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT u.id, u.username").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(int64(7), "alice", hash, "Alice A", "", "", time.Now(), nil, "user"))

	_, err = s.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownUser(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT u.id, u.username").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Login("ghost", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMissingRoleDefaultsToUser(t *testing.T) {
	s, mock := newTestService(t)

	hash, err := s.HashPassword("pw")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT u.id, u.username").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(int64(2), "bob", hash, "Bob", "", "", time.Now(), nil, "user"))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ident, err := s.Login("bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, ident.Role)
	assert.False(t, ident.IsAdmin())
}

func TestVerifySessionEmptyToken(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.VerifySession("")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

// The validity query compares expires_at against the clock, so an expired
// row behaves exactly like a missing one.
func TestVerifySessionExpired(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT s.user_id, u.username").
		WithArgs("stale-token").
		WillReturnError(sql.ErrNoRows)

	_, err := s.VerifySession("stale-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySessionResolvesIdentity(t *testing.T) {
	s, mock := newTestService(t)

	cols := []string{"user_id", "username", "full_name", "entity_id", "entity_name", "role"}
	mock.ExpectQuery("SELECT s.user_id, u.username").
		WithArgs("good-token").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(7), "alice", "Alice A", "ent-1", "Ministry", "user"))

	ident, err := s.VerifySession("good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, "Ministry", ident.EntityName)
	assert.Equal(t, "good-token", ident.SessionToken)
}

func TestLogoutRevokesSession(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("some-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Logout("some-token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHashAndCheckPassword(t *testing.T) {
	s, _ := newTestService(t)

	hash, err := s.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.NoError(t, s.CheckPassword("hunter2", hash))
	assert.Error(t, s.CheckPassword("hunter3", hash))
}
