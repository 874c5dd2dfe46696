package models

import "time"

// Entity is an organization able to send or receive correspondence.
// Type is one of "sender", "receiver" or "both".
type Entity struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
