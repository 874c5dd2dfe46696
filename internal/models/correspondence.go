package models

import (
	"time"

	"github.com/lib/pq"
)

// Correspondence is a tracked document exchanged between entities.
type Correspondence struct {
	ID                   string         `db:"id" json:"id"`
	Number               string         `db:"number" json:"number"`
	Type                 string         `db:"type" json:"type"`
	Subject              string         `db:"subject" json:"subject"`
	FromEntity           string         `db:"from_entity" json:"from_entity"`
	ReceivedByEntity     string         `db:"received_by_entity" json:"received_by_entity"`
	Date                 time.Time      `db:"date" json:"date"`
	Content              string         `db:"content" json:"content"`
	Greeting             string         `db:"greeting" json:"greeting"`
	ResponsiblePerson    string         `db:"responsible_person" json:"responsible_person"`
	SignatureURL         string         `db:"signature_url" json:"signature_url"`
	DisplayType          string         `db:"display_type" json:"display_type"`
	Attachments          pq.StringArray `db:"attachments" json:"attachments"`
	Notes                *string        `db:"notes" json:"notes"`
	Status               string         `db:"status" json:"status"`
	ReceivedBy           *int64         `db:"received_by" json:"received_by"`
	ReceivedAt           *time.Time     `db:"received_at" json:"received_at"`
	CreatedBy            *int64         `db:"created_by" json:"created_by"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	Archived             Flag           `db:"archived" json:"archived"`
	PDFURL               *string        `db:"pdf_url" json:"pdf_url"`
	ExternalDocID        *string        `db:"external_doc_id" json:"external_doc_id"`
	ExternalConnectionID *string        `db:"external_connection_id" json:"external_connection_id"`
}

// Correspondence types.
const (
	TypeIncoming = "incoming"
	TypeOutgoing = "outgoing"
)

// Display types. An attachment_only record carries no composed content;
// subject, content and greeting are not presented even if stored.
const (
	DisplayContent        = "content"
	DisplayAttachmentOnly = "attachment_only"
)

// Statuses.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusArchived = "archived"
)

// Exported reports whether the record has been handed to an external system.
func (c Correspondence) Exported() bool {
	return c.ExternalDocID != nil && *c.ExternalDocID != ""
}
