package models

import "time"

// RateLimitRecord counts attempts for one identifier on one endpoint within
// the current window. BlockedUntil, when set and in the future, rejects all
// further attempts.
type RateLimitRecord struct {
	ID           string     `db:"id" json:"id"`
	Identifier   string     `db:"identifier" json:"identifier"`
	Endpoint     string     `db:"endpoint" json:"endpoint"`
	AttemptCount int        `db:"attempt_count" json:"attempt_count"`
	WindowStart  time.Time  `db:"window_start" json:"window_start"`
	BlockedUntil *time.Time `db:"blocked_until" json:"blocked_until"`
}
