package ratelimit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/diwanhq/diwan/internal/config"
	"github.com/diwanhq/diwan/internal/models"
)

// Limiter is a store-backed fixed-window counter with an explicit block
// period. Windows rotate: a record whose window_start has fallen out of the
// policy window is reset in place instead of being reused forever.
type Limiter struct {
	db       *sqlx.DB
	policies map[string]config.PolicyConfig
	now      func() time.Time
}

// Result reports one attempt's outcome.
type Result struct {
	Allowed      bool       `json:"allowed"`
	Blocked      bool       `json:"blocked"`
	Remaining    int        `json:"remaining"`
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
}

func New(db *sqlx.DB, policies map[string]config.PolicyConfig) *Limiter {
	return &Limiter{db: db, policies: policies, now: time.Now}
}

func (l *Limiter) policy(endpoint string) config.PolicyConfig {
	if p, ok := l.policies[endpoint]; ok {
		return p
	}
	return l.policies["api"]
}

// Check records one attempt for (identifier, endpoint) and decides whether
// it may proceed.
func (l *Limiter) Check(identifier, endpoint string) (Result, error) {
	p := l.policy(endpoint)
	now := l.now()

	var rec models.RateLimitRecord
	err := l.db.Get(&rec, `
		SELECT id, identifier, endpoint, attempt_count, window_start, blocked_until
		FROM rate_limits
		WHERE identifier = $1 AND endpoint = $2`, identifier, endpoint)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = l.db.Exec(`
			INSERT INTO rate_limits (id, identifier, endpoint, attempt_count, window_start)
			VALUES ($1, $2, $3, 1, $4)`,
			uuid.New().String(), identifier, endpoint, now)
		if err != nil {
			return Result{}, fmt.Errorf("create rate limit record: %w", err)
		}
		return Result{Allowed: true, Remaining: p.MaxAttempts - 1}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read rate limit record: %w", err)
	}

	if rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		return Result{Blocked: true, BlockedUntil: rec.BlockedUntil}, nil
	}

	window := time.Duration(p.WindowMinutes) * time.Minute
	if rec.WindowStart.Before(now.Add(-window)) {
		// Stale window: rotate rather than keep counting against it.
		_, err = l.db.Exec(`
			UPDATE rate_limits
			SET attempt_count = 1, window_start = $1, blocked_until = NULL
			WHERE id = $2`, now, rec.ID)
		if err != nil {
			return Result{}, fmt.Errorf("rotate rate limit window: %w", err)
		}
		return Result{Allowed: true, Remaining: p.MaxAttempts - 1}, nil
	}

	count := rec.AttemptCount + 1
	if count > p.MaxAttempts {
		until := now.Add(time.Duration(p.BlockMinutes) * time.Minute)
		_, err = l.db.Exec(`
			UPDATE rate_limits
			SET attempt_count = $1, blocked_until = $2
			WHERE id = $3`, count, until, rec.ID)
		if err != nil {
			return Result{}, fmt.Errorf("block rate limit record: %w", err)
		}
		return Result{Blocked: true, BlockedUntil: &until}, nil
	}

	_, err = l.db.Exec(`
		UPDATE rate_limits SET attempt_count = $1 WHERE id = $2`, count, rec.ID)
	if err != nil {
		return Result{}, fmt.Errorf("update rate limit record: %w", err)
	}
	return Result{Allowed: true, Remaining: p.MaxAttempts - count}, nil
}

// Reset clears counters after a successful authenticated action.
func (l *Limiter) Reset(identifier, endpoint string) error {
	_, err := l.db.Exec(`
		DELETE FROM rate_limits WHERE identifier = $1 AND endpoint = $2`,
		identifier, endpoint)
	return err
}
