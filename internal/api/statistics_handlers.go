package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type typeCount struct {
	Type  string `db:"type" json:"type"`
	Count int64  `db:"count" json:"count"`
}

type entityCount struct {
	Entity string `db:"entity" json:"entity"`
	Count  int64  `db:"count" json:"count"`
}

type monthCount struct {
	Month string `db:"month" json:"month"`
	Count int64  `db:"count" json:"count"`
}

// statsScope returns the WHERE clause and args that restrict statistics to
// the caller's entity, or none at all for admins.
func statsScope(ident models.Identity) (string, []any) {
	if ident.IsAdmin() || ident.EntityName == "" {
		return "", nil
	}
	return " WHERE from_entity = $1 OR received_by_entity = $1", []any{ident.EntityName}
}

func handleDashboardStats(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	where, args := statsScope(ident)

	type counts struct {
		Total     int64 `db:"total"`
		Incoming  int64 `db:"incoming"`
		Outgoing  int64 `db:"outgoing"`
		Archived  int64 `db:"archived"`
		Drafts    int64 `db:"drafts"`
		ThisMonth int64 `db:"this_month"`
		ThisWeek  int64 `db:"this_week"`
		Today     int64 `db:"today"`
	}
	var row counts
	err := a.DB().Get(&row, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE type = 'incoming') AS incoming,
			COUNT(*) FILTER (WHERE type = 'outgoing') AS outgoing,
			COUNT(*) FILTER (WHERE archived = 1) AS archived,
			COUNT(*) FILTER (WHERE status = 'draft') AS drafts,
			COUNT(*) FILTER (WHERE date >= date_trunc('month', now())) AS this_month,
			COUNT(*) FILTER (WHERE date >= date_trunc('week', now())) AS this_week,
			COUNT(*) FILTER (WHERE date >= date_trunc('day', now())) AS today
		FROM correspondences`+where, args...)
	if err != nil {
		a.Logger().Error("dashboard stats failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to compute statistics"})
		return
	}

	var activeSessions, activeTemplates, unread int64
	if err := a.DB().Get(&activeSessions, `SELECT COUNT(*) FROM sessions WHERE expires_at > now()`); err != nil {
		a.Logger().Warn("session count failed", zap.Error(err))
	}
	if err := a.DB().Get(&activeTemplates, `SELECT COUNT(*) FROM correspondence_templates WHERE is_active = 1`); err != nil {
		a.Logger().Warn("template count failed", zap.Error(err))
	}
	if err := a.DB().Get(&unread, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = 0`, ident.UserID); err != nil {
		a.Logger().Warn("unread count failed", zap.Error(err))
	}

	c.JSON(200, gin.H{
		"total":                row.Total,
		"incoming":             row.Incoming,
		"outgoing":             row.Outgoing,
		"archived":             row.Archived,
		"drafts":               row.Drafts,
		"this_month":           row.ThisMonth,
		"this_week":            row.ThisWeek,
		"today":                row.Today,
		"active_sessions":      activeSessions,
		"active_templates":     activeTemplates,
		"unread_notifications": unread,
	})
}

func handleStatsByType(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	where, args := statsScope(ident)

	var rows []typeCount
	err := a.DB().Select(&rows, `
		SELECT type, COUNT(*) AS count
		FROM correspondences`+where+`
		GROUP BY type
		ORDER BY count DESC`, args...)
	if err != nil {
		a.Logger().Error("stats by type failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(200, rows)
}

func handleStatsByEntity(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	where, args := statsScope(ident)

	var rows []entityCount
	err := a.DB().Select(&rows, `
		SELECT from_entity AS entity, COUNT(*) AS count
		FROM correspondences`+where+`
		GROUP BY from_entity
		ORDER BY count DESC
		LIMIT 10`, args...)
	if err != nil {
		a.Logger().Error("stats by entity failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(200, rows)
}

func handleStatsTimeline(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	where, args := statsScope(ident)

	days := 365
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 3650 {
			days = n
		}
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	args = append(args, cutoff)
	if where == "" {
		where = fmt.Sprintf(" WHERE date >= $%d", len(args))
	} else {
		where += fmt.Sprintf(" AND date >= $%d", len(args))
	}

	var rows []monthCount
	err := a.DB().Select(&rows, `
		SELECT to_char(date_trunc('month', date), 'YYYY-MM') AS month, COUNT(*) AS count
		FROM correspondences`+where+`
		GROUP BY month
		ORDER BY month`, args...)
	if err != nil {
		a.Logger().Error("stats timeline failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(200, rows)
}
