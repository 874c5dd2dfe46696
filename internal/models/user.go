package models

import "time"

// User is an account that can log in and own correspondence actions.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	EntityID     string    `db:"entity_id" json:"entity_id"`
	EntityName   string    `db:"entity_name" json:"entity_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	CreatedBy    *int64    `db:"created_by" json:"created_by"`
}

// UserRole maps a user to exactly one role ("admin" or "user").
type UserRole struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
