package models

import "time"

// Notification is an in-app message for a user. High priority ones may also
// be delivered over SMTP when a notifier is configured.
type Notification struct {
	ID                string     `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	Type              string     `db:"type" json:"type"`
	Title             string     `db:"title" json:"title"`
	Message           string     `db:"message" json:"message"`
	CorrespondenceID  *string    `db:"correspondence_id" json:"correspondence_id"`
	RelatedEntityType *string    `db:"related_entity_type" json:"related_entity_type"`
	RelatedEntityID   *string    `db:"related_entity_id" json:"related_entity_id"`
	Priority          string     `db:"priority" json:"priority"`
	ActionURL         *string    `db:"action_url" json:"action_url"`
	Read              Flag       `db:"read" json:"read"`
	ReadAt            *time.Time `db:"read_at" json:"read_at"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)
