package models

import "time"

// Template is a reusable correspondence skeleton. Placeholders in the
// subject and content use {{name}} syntax.
type Template struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	ContentTemplate string    `db:"content_template" json:"content_template"`
	SubjectTemplate *string   `db:"subject_template" json:"subject_template"`
	Greeting        string    `db:"greeting" json:"greeting"`
	Category        string    `db:"category" json:"category"`
	Type            string    `db:"type" json:"type"`
	EntityID        *string   `db:"entity_id" json:"entity_id"`
	Variables       string    `db:"variables" json:"variables"`
	IsActive        Flag      `db:"is_active" json:"is_active"`
	IsPublic        Flag      `db:"is_public" json:"is_public"`
	UsageCount      int32     `db:"usage_count" json:"usage_count"`
	CreatedBy       *int64    `db:"created_by" json:"created_by"`
	UpdatedBy       *int64    `db:"updated_by" json:"updated_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
