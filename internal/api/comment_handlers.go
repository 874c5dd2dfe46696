package api

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type CommentCreate struct {
	CorrespondenceID string      `json:"correspondence_id" binding:"required"`
	Comment          string      `json:"comment" binding:"required"`
	IsInternal       models.Flag `json:"is_internal"`
	ParentCommentID  *string     `json:"parent_comment_id"`
	MentionedUsers   []int64     `json:"mentioned_users"`
	Attachments      []string    `json:"attachments"`
}

type CommentUpdate struct {
	Comment string `json:"comment" binding:"required"`
}

type commentWithAuthor struct {
	models.Comment
	AuthorName *string `db:"author_name" json:"author_name"`
}

func handleListComments(a *app.App, c *gin.Context) {
	var comments []commentWithAuthor
	err := a.DB().Select(&comments, `
		SELECT cc.*, u.full_name AS author_name
		FROM correspondence_comments cc
		LEFT JOIN users u ON u.id = cc.user_id
		WHERE cc.correspondence_id = $1
		ORDER BY cc.created_at`, c.Param("id"))
	if err != nil {
		a.Logger().Error("list comments failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch comments"})
		return
	}
	c.JSON(200, comments)
}

func handleCreateComment(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)

	var in CommentCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	var cnt int
	if err := a.DB().Get(&cnt, `SELECT COUNT(*) FROM correspondences WHERE id = $1`, in.CorrespondenceID); err != nil {
		c.JSON(500, gin.H{"error": "Database error"})
		return
	}
	if cnt == 0 {
		c.JSON(404, gin.H{"error": "Correspondence not found"})
		return
	}

	id := uuid.New().String()
	now := time.Now()
	_, err := a.DB().Exec(`
		INSERT INTO correspondence_comments
			(id, correspondence_id, user_id, comment, is_internal,
			 parent_comment_id, mentioned_users, attachments, is_edited,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)`,
		id, in.CorrespondenceID, ident.UserID, in.Comment, in.IsInternal,
		in.ParentCommentID, pq.Int64Array(in.MentionedUsers), pq.StringArray(in.Attachments), now)
	if err != nil {
		a.Logger().Error("create comment failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create comment"})
		return
	}

	notifyMentionedUsers(a, in.CorrespondenceID, id, in.MentionedUsers, ident)

	c.JSON(201, gin.H{"id": id, "message": "Comment created successfully"})
}

func notifyMentionedUsers(a *app.App, correspondenceID, commentID string, userIDs []int64, from models.Identity) {
	for _, uid := range userIDs {
		if uid == from.UserID {
			continue
		}
		_, err := a.Notifier().Create(models.Notification{
			UserID:           uid,
			Type:             "comment_mention",
			Title:            "تمت الإشارة إليك في تعليق",
			Message:          from.FullName,
			CorrespondenceID: &correspondenceID,
			RelatedEntityID:  &commentID,
			Priority:         models.PriorityNormal,
		})
		if err != nil {
			a.Logger().Warn("mention notification failed", zap.Int64("user_id", uid), zap.Error(err))
		}
	}
}

func handleUpdateComment(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	id := c.Param("id")

	var in CommentUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Comment text is required"})
		return
	}

	// Only the author can edit; admins included.
	result, err := a.DB().Exec(`
		UPDATE correspondence_comments
		SET comment = $1, is_edited = 1, updated_at = $2
		WHERE id = $3 AND user_id = $4`, in.Comment, time.Now(), id, ident.UserID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to update comment"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Comment not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Comment updated successfully"})
}

func handleDeleteComment(a *app.App, c *gin.Context) {
	ident, _ := identityFrom(c)
	id := c.Param("id")

	var result sql.Result
	var err error
	if ident.IsAdmin() {
		result, err = a.DB().Exec(`DELETE FROM correspondence_comments WHERE id = $1`, id)
	} else {
		result, err = a.DB().Exec(`DELETE FROM correspondence_comments WHERE id = $1 AND user_id = $2`, id, ident.UserID)
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to delete comment"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "Comment not found"})
		return
	}
	c.JSON(200, gin.H{"message": "Comment deleted"})
}
