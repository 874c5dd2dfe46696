package api

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type TemplateCreate struct {
	Name            string      `json:"name" binding:"required"`
	ContentTemplate string      `json:"content_template" binding:"required"`
	SubjectTemplate *string     `json:"subject_template"`
	Greeting        string      `json:"greeting"`
	Category        string      `json:"category"`
	Type            string      `json:"type"`
	EntityID        *string     `json:"entity_id"`
	Variables       string      `json:"variables"`
	IsPublic        models.Flag `json:"is_public"`
}

type TemplateUse struct {
	Variables map[string]string `json:"variables"`
}

func handleListTemplates(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	// Private templates are visible to their creator only.
	query := `
		SELECT * FROM correspondence_templates
		WHERE is_active = 1 AND (is_public = 1 OR created_by = $1)`
	args := []any{ident.UserID}
	if cat := c.Query("category"); cat != "" {
		args = append(args, cat)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if typ := c.Query("type"); typ != "" {
		args = append(args, typ)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY usage_count DESC, name"

	var templates []models.Template
	err := a.DB().Select(&templates, query, args...)
	if err != nil {
		a.Logger().Error("list templates failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch templates"})
		return
	}
	c.JSON(200, templates)
}

func handleGetTemplate(a *app.App, c *gin.Context) {
	var tpl models.Template
	err := a.DB().Get(&tpl, `SELECT * FROM correspondence_templates WHERE id = $1`, c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(404, gin.H{"error": "Template not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch template"})
		return
	}
	c.JSON(200, tpl)
}

func handleCreateTemplate(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	var in TemplateCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if in.Greeting == "" {
		in.Greeting = "السيد/"
	}
	if in.Category == "" {
		in.Category = "general"
	}
	if in.Type == "" {
		in.Type = models.TypeOutgoing
	}
	if in.Variables == "" {
		in.Variables = "[]"
	}

	id := uuid.New().String()
	now := time.Now()
	_, err := a.DB().Exec(`
		INSERT INTO correspondence_templates
			(id, name, content_template, subject_template, greeting, category,
			 type, entity_id, variables, is_active, is_public, usage_count,
			 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, 0, $11, $12, $12)`,
		id, in.Name, in.ContentTemplate, in.SubjectTemplate, in.Greeting, in.Category,
		in.Type, in.EntityID, in.Variables, in.IsPublic, ident.UserID, now)
	if err != nil {
		a.Logger().Error("create template failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(201, gin.H{"id": id, "message": "Template created successfully"})
}

// substitute replaces each {{name}} placeholder with its provided value.
// Unknown placeholders are left untouched so the gap is visible to the user.
func substitute(text string, vars map[string]string) string {
	for name, value := range vars {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

func handleUseTemplate(a *app.App, c *gin.Context) {
	id := c.Param("id")

	var tpl models.Template
	err := a.DB().Get(&tpl, `SELECT * FROM correspondence_templates WHERE id = $1 AND is_active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(404, gin.H{"error": "Template not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch template"})
		return
	}

	var in TemplateUse
	_ = c.ShouldBindJSON(&in)

	content := substitute(tpl.ContentTemplate, in.Variables)
	var subject string
	if tpl.SubjectTemplate != nil {
		subject = substitute(*tpl.SubjectTemplate, in.Variables)
	}

	if _, err := a.DB().Exec(`
		UPDATE correspondence_templates
		SET usage_count = usage_count + 1, updated_at = $1
		WHERE id = $2`, time.Now(), id); err != nil {
		a.Logger().Warn("template usage bump failed", zap.String("id", id), zap.Error(err))
	}

	c.JSON(200, gin.H{
		"content":  content,
		"subject":  subject,
		"greeting": tpl.Greeting,
		"type":     tpl.Type,
	})
}
