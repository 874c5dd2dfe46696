package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

func handleListNotifications(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	args := []any{ident.UserID, limit}
	if c.Query("unread_only") == "true" {
		query = `
			SELECT * FROM notifications
			WHERE user_id = $1 AND read = 0
			ORDER BY created_at DESC
			LIMIT $2`
	}

	var notes []models.Notification
	if err := a.DB().Select(&notes, query, args...); err != nil {
		a.Logger().Error("list notifications failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	c.JSON(200, notes)
}

func handleUnreadCount(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	var cnt int
	err := a.DB().Get(&cnt, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND read = 0`, ident.UserID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(200, gin.H{"count": cnt})
}

func handleMarkAllRead(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	_, err := a.DB().Exec(`
		UPDATE notifications
		SET read = 1, read_at = $1
		WHERE user_id = $2 AND read = 0`, time.Now(), ident.UserID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to mark notifications read"})
		return
	}
	c.JSON(200, gin.H{"message": "All notifications marked as read"})
}

func handleMarkNotificationRead(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	result, err := a.DB().Exec(`
		UPDATE notifications
		SET read = 1, read_at = $1
		WHERE id = $2 AND user_id = $3`, time.Now(), c.Param("id"), ident.UserID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to mark notification read"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Notification marked as read"})
}
