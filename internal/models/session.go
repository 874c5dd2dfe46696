package models

import "time"

// Session is an opaque bearer credential. A session is valid iff
// expires_at is in the future; there is no other state.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Identity is the resolved view of a valid session: the owning user plus
// their single role.
type Identity struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	EntityID     string `json:"entityId"`
	EntityName   string `json:"entityName"`
	Role         string `json:"role"`
	SessionToken string `json:"sessionToken"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
