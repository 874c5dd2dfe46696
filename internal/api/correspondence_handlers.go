package api

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type CorrespondenceCreate struct {
	Number            string    `json:"number" binding:"required"`
	Type              string    `json:"type" binding:"required"`
	Subject           string    `json:"subject"`
	Content           string    `json:"content"`
	FromEntity        string    `json:"from_entity" binding:"required"`
	ReceivedByEntity  string    `json:"received_by_entity"`
	Date              time.Time `json:"date" binding:"required"`
	Greeting          string    `json:"greeting"`
	DisplayType       string    `json:"display_type"`
	ResponsiblePerson string    `json:"responsible_person"`
	SignatureURL      string    `json:"signature_url"`
	Attachments       []string  `json:"attachments"`
	Notes             *string   `json:"notes"`
}

type CorrespondenceUpdate struct {
	Number            *string      `json:"number"`
	Type              *string      `json:"type"`
	Subject           *string      `json:"subject"`
	Content           *string      `json:"content"`
	FromEntity        *string      `json:"from_entity"`
	ReceivedByEntity  *string      `json:"received_by_entity"`
	Greeting          *string      `json:"greeting"`
	DisplayType       *string      `json:"display_type"`
	ResponsiblePerson *string      `json:"responsible_person"`
	SignatureURL      *string      `json:"signature_url"`
	Attachments       *[]string    `json:"attachments"`
	Notes             *string      `json:"notes"`
	Status            *string      `json:"status"`
	Archived          *models.Flag `json:"archived"`
}

// presentCorrespondence is the client-facing shape: from_entity doubles as
// "from", archived is a real boolean, and attachment_only records never
// expose composed content no matter what is stored.
func presentCorrespondence(c models.Correspondence) gin.H {
	subject, content, greeting := c.Subject, c.Content, c.Greeting
	if c.DisplayType == models.DisplayAttachmentOnly {
		subject, content, greeting = "", "", ""
	}

	attachments := []string(c.Attachments)
	if attachments == nil {
		attachments = []string{}
	}

	return gin.H{
		"id":                     c.ID,
		"number":                 c.Number,
		"type":                   c.Type,
		"subject":                subject,
		"from":                   c.FromEntity,
		"from_entity":            c.FromEntity,
		"received_by_entity":     c.ReceivedByEntity,
		"date":                   c.Date,
		"content":                content,
		"greeting":               greeting,
		"responsible_person":     c.ResponsiblePerson,
		"signature_url":          c.SignatureURL,
		"display_type":           c.DisplayType,
		"attachments":            attachments,
		"notes":                  c.Notes,
		"status":                 c.Status,
		"received_by":            c.ReceivedBy,
		"received_at":            c.ReceivedAt,
		"created_by":             c.CreatedBy,
		"created_at":             c.CreatedAt,
		"updated_at":             c.UpdatedAt,
		"archived":               c.Archived.Bool(),
		"pdf_url":                c.PDFURL,
		"external_doc_id":        c.ExternalDocID,
		"external_connection_id": c.ExternalConnectionID,
	}
}

func handleListCorrespondences(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	var rows []models.Correspondence
	var err error
	if ident.IsAdmin() || ident.EntityName == "" {
		err = a.DB().Select(&rows, `
			SELECT * FROM correspondences ORDER BY date DESC`)
	} else {
		// Non-admin users see only traffic touching their own entity.
		err = a.DB().Select(&rows, `
			SELECT * FROM correspondences
			WHERE from_entity = $1 OR received_by_entity = $1
			ORDER BY date DESC`, ident.EntityName)
	}
	if err != nil {
		a.Logger().Error("list correspondences failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch correspondences"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, presentCorrespondence(row))
	}
	c.JSON(200, out)
}

func handleGetCorrespondence(a *app.App, c *gin.Context) {
	var row models.Correspondence
	err := a.DB().Get(&row, `SELECT * FROM correspondences WHERE id = $1`, c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(404, gin.H{"error": "Correspondence not found"})
		return
	}
	if err != nil {
		a.Logger().Error("get correspondence failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch correspondence"})
		return
	}
	c.JSON(200, presentCorrespondence(row))
}

func handleCreateCorrespondence(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	var in CorrespondenceCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if in.Greeting == "" {
		in.Greeting = "السيد/"
	}
	if in.DisplayType == "" {
		in.DisplayType = models.DisplayContent
	}

	id := uuid.New().String()
	now := time.Now()
	_, err := a.DB().Exec(`
		INSERT INTO correspondences
			(id, number, type, subject, from_entity, received_by_entity, date,
			 content, greeting, responsible_person, signature_url, display_type,
			 attachments, notes, status, created_by, created_at, updated_at, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17, 0)`,
		id, in.Number, in.Type, in.Subject, in.FromEntity, in.ReceivedByEntity, in.Date,
		in.Content, in.Greeting, in.ResponsiblePerson, in.SignatureURL, in.DisplayType,
		pq.StringArray(in.Attachments), in.Notes, models.StatusDraft, ident.UserID, now)
	if err != nil {
		a.Logger().Error("create correspondence failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create correspondence"})
		return
	}

	notifyReceivingEntity(a, id, in.Subject, in.ReceivedByEntity)

	c.JSON(201, gin.H{"id": id, "message": "Correspondence created successfully"})
}

// notifyReceivingEntity fans an in-app notification out to every user of the
// entity the document is addressed to. Failures are logged, never surfaced.
func notifyReceivingEntity(a *app.App, correspondenceID, subject, entityName string) {
	if entityName == "" {
		return
	}

	var userIDs []int64
	if err := a.DB().Select(&userIDs, `SELECT id FROM users WHERE entity_name = $1`, entityName); err != nil {
		a.Logger().Warn("notify lookup failed", zap.String("entity", entityName), zap.Error(err))
		return
	}

	for _, uid := range userIDs {
		_, err := a.Notifier().Create(models.Notification{
			UserID:           uid,
			Type:             "correspondence_received",
			Title:            "مراسلة جديدة",
			Message:          subject,
			CorrespondenceID: &correspondenceID,
			Priority:         models.PriorityNormal,
		})
		if err != nil {
			a.Logger().Warn("create notification failed", zap.Int64("user_id", uid), zap.Error(err))
		}
	}
}

func handleUpdateCorrespondence(a *app.App, c *gin.Context) {
	id := c.Param("id")

	var existing models.Correspondence
	err := a.DB().Get(&existing, `SELECT * FROM correspondences WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(404, gin.H{"error": "Correspondence not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch correspondence"})
		return
	}

	var in CorrespondenceUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	// display_type is frozen once the record is archived or has been handed
	// to an external system.
	if in.DisplayType != nil && *in.DisplayType != existing.DisplayType &&
		(existing.Archived.Bool() || existing.Exported()) {
		c.JSON(409, gin.H{"error": "display_type cannot change after archiving or export"})
		return
	}

	// All writes are parameterized; user input never reaches command text.
	set := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.Number != nil {
		add("number", *in.Number)
	}
	if in.Type != nil {
		add("type", *in.Type)
	}
	if in.Subject != nil {
		add("subject", *in.Subject)
	}
	if in.Content != nil {
		add("content", *in.Content)
	}
	if in.FromEntity != nil {
		add("from_entity", *in.FromEntity)
	}
	if in.ReceivedByEntity != nil {
		add("received_by_entity", *in.ReceivedByEntity)
	}
	if in.Greeting != nil {
		add("greeting", *in.Greeting)
	}
	if in.DisplayType != nil {
		add("display_type", *in.DisplayType)
	}
	if in.ResponsiblePerson != nil {
		add("responsible_person", *in.ResponsiblePerson)
	}
	if in.SignatureURL != nil {
		add("signature_url", *in.SignatureURL)
	}
	if in.Attachments != nil {
		add("attachments", pq.StringArray(*in.Attachments))
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.Archived != nil {
		add("archived", *in.Archived)
	}

	if len(set) == 0 {
		c.JSON(400, gin.H{"error": "No updates provided"})
		return
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE correspondences SET %s WHERE id = $%d",
		strings.Join(set, ", "), len(args))

	if _, err := a.DB().Exec(query, args...); err != nil {
		a.Logger().Error("update correspondence failed", zap.String("id", id), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to update correspondence"})
		return
	}
	c.JSON(200, gin.H{"message": "Correspondence updated successfully"})
}

func handleArchiveCorrespondence(a *app.App, c *gin.Context) {
	id := c.Param("id")

	result, err := a.DB().Exec(`
		UPDATE correspondences
		SET archived = 1, status = $1, updated_at = $2
		WHERE id = $3`, models.StatusArchived, time.Now(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to archive correspondence"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Correspondence not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Correspondence archived"})
}

func handleDeleteCorrespondence(a *app.App, c *gin.Context) {
	id := c.Param("id")

	result, err := a.DB().Exec(`DELETE FROM correspondences WHERE id = $1`, id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to delete correspondence"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Correspondence not found"})
		return
	}

	_, _ = a.DB().Exec(`DELETE FROM correspondence_comments WHERE correspondence_id = $1`, id)
	c.JSON(200, gin.H{"message": "Correspondence deleted"})
}
