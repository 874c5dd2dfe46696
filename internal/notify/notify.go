package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/diwanhq/diwan/internal/config"
	"github.com/diwanhq/diwan/internal/models"
)

// Notifier stores in-app notifications and, when SMTP is configured, mails
// high-priority ones as well. Mail failures never fail the notification.
type Notifier struct {
	db     *sqlx.DB
	smtp   config.SMTPConfig
	logger *zap.Logger
}

func New(db *sqlx.DB, smtp config.SMTPConfig, logger *zap.Logger) *Notifier {
	return &Notifier{db: db, smtp: smtp, logger: logger}
}

// Create inserts the notification, assigning id and timestamp.
func (n *Notifier) Create(note models.Notification) (string, error) {
	id := uuid.New().String()
	if note.Priority == "" {
		note.Priority = models.PriorityNormal
	}

	_, err := n.db.Exec(`
		INSERT INTO notifications
			(id, user_id, type, title, message, correspondence_id,
			 related_entity_type, related_entity_id, priority, action_url, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)`,
		id, note.UserID, note.Type, note.Title, note.Message, note.CorrespondenceID,
		note.RelatedEntityType, note.RelatedEntityID, note.Priority, note.ActionURL,
		time.Now())
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}

	if note.Priority == models.PriorityHigh && n.smtp.Host != "" {
		n.deliverMail(note)
	}
	return id, nil
}

func (n *Notifier) deliverMail(note models.Notification) {
	var username string
	if err := n.db.Get(&username, `SELECT username FROM users WHERE id = $1`, note.UserID); err != nil {
		n.logger.Warn("notification mail skipped, user lookup failed",
			zap.Int64("user_id", note.UserID), zap.Error(err))
		return
	}
	// Usernames double as mail addresses only when they contain a domain.
	if !strings.Contains(username, "@") {
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.smtp.From)
	msg.SetHeader("To", username)
	msg.SetHeader("Subject", note.Title)
	msg.SetBody("text/plain", note.Message)

	d := gomail.NewDialer(n.smtp.Host, n.smtp.Port, "", "")
	if err := d.DialAndSend(msg); err != nil {
		n.logger.Warn("notification mail delivery failed",
			zap.String("to", username), zap.Error(err))
	}
}
