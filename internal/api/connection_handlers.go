package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
	"github.com/diwanhq/diwan/internal/sync"
)

type ConnectionCreate struct {
	Name     string `json:"name" binding:"required"`
	BaseURL  string `json:"base_url" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ConnectionUpdate struct {
	Name     *string      `json:"name"`
	BaseURL  *string      `json:"base_url"`
	Username *string      `json:"username"`
	Password *string      `json:"password"`
	IsActive *models.Flag `json:"is_active"`
}

type ExternalActionRequest struct {
	CorrespondenceID   *string `json:"correspondence_id"`
	ExternalDocID      string  `json:"docId"`
	MessagingHistoryID string  `json:"messagingHistoryId"`
	Comments           string  `json:"comments"`
	ReceivedByName     string  `json:"receivedByName"`
	ReceiveByOuName    string  `json:"receiveByOuName"`
}

func handleListConnections(a *app.App, c *gin.Context) {
	var conns []models.ExternalConnection
	err := a.DB().Select(&conns, `SELECT * FROM external_connections ORDER BY name`)
	if err != nil {
		a.Logger().Error("list connections failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch connections"})
		return
	}
	c.JSON(200, conns)
}

func handleCreateConnection(a *app.App, c *gin.Context) {
	var in ConnectionCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	id := uuid.New().String()
	now := time.Now()
	_, err := a.DB().Exec(`
		INSERT INTO external_connections
			(id, name, base_url, username, password, is_active, sync_status,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, '', $6, $6)`,
		id, in.Name, strings.TrimRight(in.BaseURL, "/"), in.Username, in.Password, now)
	if err != nil {
		a.Logger().Error("create connection failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create connection"})
		return
	}
	c.JSON(201, gin.H{"id": id, "message": "Connection created successfully"})
}

func handleUpdateConnection(a *app.App, c *gin.Context) {
	id := c.Param("id")

	var in ConnectionUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	set := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.BaseURL != nil {
		add("base_url", strings.TrimRight(*in.BaseURL, "/"))
	}
	if in.Username != nil {
		add("username", *in.Username)
	}
	if in.Password != nil && *in.Password != "" {
		add("password", *in.Password)
	}
	// Credential changes invalidate any cached remote session.
	if in.Username != nil || (in.Password != nil && *in.Password != "") || in.BaseURL != nil {
		set = append(set, "session_token = NULL", "session_expires_at = NULL")
	}
	if in.IsActive != nil {
		add("is_active", *in.IsActive)
	}

	if len(set) == 0 {
		c.JSON(400, gin.H{"error": "No updates provided"})
		return
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE external_connections SET %s WHERE id = $%d",
		strings.Join(set, ", "), len(args))

	result, err := a.DB().Exec(query, args...)
	if err != nil {
		a.Logger().Error("update connection failed", zap.String("id", id), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to update connection"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Connection not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Connection updated successfully"})
}

func handleDeleteConnection(a *app.App, c *gin.Context) {
	id := c.Param("id")

	result, err := a.DB().Exec(`DELETE FROM external_connections WHERE id = $1`, id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to delete connection"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Connection not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Connection deleted"})
}

// handleExternalAction dispatches one bridge operation against a configured
// connection: authenticate, sync, export, receive or return.
func handleExternalAction(a *app.App, c *gin.Context) {
	connectionID := c.Param("id")
	action := c.Param("action")

	var in ExternalActionRequest
	_ = c.ShouldBindJSON(&in)

	ctx := c.Request.Context()
	var err error
	var payload gin.H

	switch action {
	case sync.ActionAuthenticate:
		_, err = a.Bridge().Authenticate(ctx, connectionID)
		payload = gin.H{"message": "Authenticated with external system"}

	case sync.ActionSync:
		var res sync.SyncResult
		res, err = a.Bridge().Sync(ctx, connectionID)
		payload = gin.H{"message": "Sync completed", "count": res.Count}

	case sync.ActionExport:
		if in.CorrespondenceID == nil {
			c.JSON(400, gin.H{"error": "correspondence_id is required"})
			return
		}
		var docID string
		docID, err = a.Bridge().Export(ctx, connectionID, *in.CorrespondenceID)
		payload = gin.H{"message": "Correspondence exported", "external_doc_id": docID}

	case sync.ActionReceive:
		if in.ExternalDocID == "" {
			c.JSON(400, gin.H{"error": "docId is required"})
			return
		}
		err = a.Bridge().Receive(ctx, connectionID, in.CorrespondenceID, sync.ReceivePayload{
			ExternalDocID:      in.ExternalDocID,
			MessagingHistoryID: in.MessagingHistoryID,
			Comments:           in.Comments,
			ReceivedByName:     in.ReceivedByName,
			ReceiveByOuName:    in.ReceiveByOuName,
		})
		payload = gin.H{"message": "Receive acknowledged"}

	case sync.ActionReturn:
		if in.ExternalDocID == "" {
			c.JSON(400, gin.H{"error": "docId is required"})
			return
		}
		err = a.Bridge().Return(ctx, connectionID, in.CorrespondenceID, sync.ReturnPayload{
			ExternalDocID:      in.ExternalDocID,
			MessagingHistoryID: in.MessagingHistoryID,
		})
		payload = gin.H{"message": "Return acknowledged"}

	default:
		c.JSON(400, gin.H{"error": "Unknown action"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, sync.ErrConnectionNotFound):
			c.JSON(404, gin.H{"error": "Connection not found"})
		case errors.Is(err, sync.ErrRemoteAuth):
			c.JSON(502, gin.H{"error": "Failed to authenticate with external system"})
		default:
			a.Logger().Error("external action failed",
				zap.String("connection_id", connectionID), zap.String("action", action), zap.Error(err))
			c.JSON(502, gin.H{"error": "External operation failed"})
		}
		return
	}
	c.JSON(200, payload)
}
