package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Bootstrap creates the accessed tables when they do not exist yet. The
// schema itself is collaborator-owned; this only guarantees a usable shape
// on a fresh database.
func Bootstrap(dbx *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			entity_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_by BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'both',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS correspondences (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			type TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			from_entity TEXT NOT NULL DEFAULT '',
			received_by_entity TEXT NOT NULL DEFAULT '',
			date TIMESTAMPTZ NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			greeting TEXT NOT NULL DEFAULT '',
			responsible_person TEXT NOT NULL DEFAULT '',
			signature_url TEXT NOT NULL DEFAULT '',
			display_type TEXT NOT NULL DEFAULT 'content',
			attachments TEXT[] NOT NULL DEFAULT '{}',
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			received_by BIGINT,
			received_at TIMESTAMPTZ,
			created_by BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			archived SMALLINT NOT NULL DEFAULT 0,
			pdf_url TEXT,
			external_doc_id TEXT,
			external_connection_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS correspondence_comments (
			id TEXT PRIMARY KEY,
			correspondence_id TEXT NOT NULL,
			user_id BIGINT,
			comment TEXT NOT NULL,
			is_internal SMALLINT NOT NULL DEFAULT 1,
			parent_comment_id TEXT,
			mentioned_users BIGINT[] NOT NULL DEFAULT '{}',
			attachments TEXT[] NOT NULL DEFAULT '{}',
			is_edited SMALLINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			correspondence_id TEXT,
			related_entity_type TEXT,
			related_entity_id TEXT,
			priority TEXT NOT NULL DEFAULT 'normal',
			action_url TEXT,
			read SMALLINT NOT NULL DEFAULT 0,
			read_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS correspondence_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			content_template TEXT NOT NULL,
			subject_template TEXT,
			greeting TEXT NOT NULL DEFAULT 'السيد/',
			category TEXT NOT NULL DEFAULT 'general',
			type TEXT NOT NULL DEFAULT 'all',
			entity_id TEXT,
			variables TEXT NOT NULL DEFAULT '[]',
			is_active SMALLINT NOT NULL DEFAULT 1,
			is_public SMALLINT NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_by BIGINT,
			updated_by BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS external_connections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_url TEXT NOT NULL,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			session_token TEXT,
			session_expires_at TIMESTAMPTZ,
			is_active SMALLINT NOT NULL DEFAULT 1,
			sync_status TEXT NOT NULL DEFAULT '',
			sync_error TEXT,
			last_sync_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sync_log (
			id TEXT PRIMARY KEY,
			connection_id TEXT NOT NULL,
			correspondence_id TEXT,
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			external_doc_id TEXT,
			request_payload TEXT,
			response_payload TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS rate_limits (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			window_start TIMESTAMPTZ NOT NULL,
			blocked_until TIMESTAMPTZ,
			UNIQUE (identifier, endpoint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions (token)`,
		`CREATE INDEX IF NOT EXISTS idx_correspondences_date ON correspondences (date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_correspondence ON correspondence_comments (correspondence_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := dbx.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
