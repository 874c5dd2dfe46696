package models

import (
	"time"

	"github.com/lib/pq"
)

// Comment is a remark on a correspondence, optionally threaded and
// optionally internal-only.
type Comment struct {
	ID               string         `db:"id" json:"id"`
	CorrespondenceID string         `db:"correspondence_id" json:"correspondence_id"`
	UserID           *int64         `db:"user_id" json:"user_id"`
	Comment          string         `db:"comment" json:"comment"`
	IsInternal       Flag           `db:"is_internal" json:"is_internal"`
	ParentCommentID  *string        `db:"parent_comment_id" json:"parent_comment_id"`
	MentionedUsers   pq.Int64Array  `db:"mentioned_users" json:"mentioned_users"`
	Attachments      pq.StringArray `db:"attachments" json:"attachments"`
	IsEdited         Flag           `db:"is_edited" json:"is_edited"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
