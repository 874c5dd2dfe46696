package models

import "time"

// ExternalConnection is a configured remote correspondence system with its
// own credential and session lifecycle.
type ExternalConnection struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	BaseURL          string     `db:"base_url" json:"base_url"`
	Username         string     `db:"username" json:"username"`
	Password         string     `db:"password" json:"-"`
	SessionToken     *string    `db:"session_token" json:"-"`
	SessionExpiresAt *time.Time `db:"session_expires_at" json:"session_expires_at"`
	IsActive         Flag       `db:"is_active" json:"is_active"`
	SyncStatus       string     `db:"sync_status" json:"sync_status"`
	SyncError        *string    `db:"sync_error" json:"sync_error"`
	LastSyncAt       *time.Time `db:"last_sync_at" json:"last_sync_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Connection sync statuses.
const (
	SyncConnected = "connected"
	SyncSynced    = "synced"
	SyncError     = "error"
)

// TokenValidAt reports whether the cached remote session can still be used
// at the given instant.
func (c ExternalConnection) TokenValidAt(t time.Time) bool {
	return c.SessionToken != nil && *c.SessionToken != "" &&
		c.SessionExpiresAt != nil && c.SessionExpiresAt.After(t)
}

// SyncLogEntry records the outcome of one bridge operation.
type SyncLogEntry struct {
	ID               string    `db:"id" json:"id"`
	ConnectionID     string    `db:"connection_id" json:"connection_id"`
	CorrespondenceID *string   `db:"correspondence_id" json:"correspondence_id"`
	Operation        string    `db:"operation" json:"operation"`
	Status           string    `db:"status" json:"status"`
	ExternalDocID    *string   `db:"external_doc_id" json:"external_doc_id"`
	RequestPayload   *string   `db:"request_payload" json:"request_payload"`
	ResponsePayload  *string   `db:"response_payload" json:"response_payload"`
	ErrorMessage     *string   `db:"error_message" json:"error_message"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
