package ratelimit

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwanhq/diwan/internal/config"
)

func newTestLimiter(t *testing.T) (*Limiter, sqlmock.Sqlmock, time.Time) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l := New(sqlx.NewDb(mockDB, "sqlmock"), config.DefaultRateLimits())
	l.now = func() time.Time { return now }
	return l, mock, now
}

func recordColumns() []string {
	return []string{"id", "identifier", "endpoint", "attempt_count", "window_start", "blocked_until"}
}

func TestCheckFirstAttemptCreatesRecord(t *testing.T) {
	l, mock, _ := newTestLimiter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, identifier, endpoint, attempt_count, window_start, blocked_until")).
		WithArgs("alice", "login").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rate_limits")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := l.Check("alice", "login")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, res.Blocked)
	assert.Equal(t, 4, res.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBlocksAfterMaxAttempts(t *testing.T) {
	l, mock, now := newTestLimiter(t)

	// Fifth failure within the window was already recorded; this is the sixth.
	mock.ExpectQuery("SELECT id, identifier").
		WithArgs("alice", "login").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-1", "alice", "login", 5, now.Add(-time.Minute), nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rate_limits")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := l.Check("alice", "login")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	require.NotNil(t, res.BlockedUntil)
	assert.Equal(t, now.Add(30*time.Minute), *res.BlockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckHonorsActiveBlock(t *testing.T) {
	l, mock, now := newTestLimiter(t)

	until := now.Add(10 * time.Minute)
	mock.ExpectQuery("SELECT id, identifier").
		WithArgs("alice", "login").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-1", "alice", "login", 6, now.Add(-time.Minute), until))

	res, err := l.Check("alice", "login")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, until, *res.BlockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRotatesStaleWindow(t *testing.T) {
	l, mock, now := newTestLimiter(t)

	// Old exhausted window whose block has lapsed starts a fresh count.
	expired := now.Add(-time.Minute)
	mock.ExpectQuery("SELECT id, identifier").
		WithArgs("alice", "login").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-1", "alice", "login", 6, now.Add(-2*time.Hour), expired))
	mock.ExpectExec(regexp.QuoteMeta("SET attempt_count = 1, window_start = $1, blocked_until = NULL")).
		WithArgs(now, "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := l.Check("alice", "login")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckUnknownEndpointUsesAPIPolicy(t *testing.T) {
	l, mock, now := newTestLimiter(t)

	mock.ExpectQuery("SELECT id, identifier").
		WithArgs("10.0.0.1", "something-else").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-9", "10.0.0.1", "something-else", 10, now, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rate_limits SET attempt_count")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := l.Check("10.0.0.1", "something-else")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 100-11, res.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetDeletesRecord(t *testing.T) {
	l, mock, _ := newTestLimiter(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rate_limits")).
		WithArgs("alice", "login").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, l.Reset("alice", "login"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
