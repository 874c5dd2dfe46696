package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/diwanhq/diwan/internal/models"
)

var (
	// ErrInvalidCredentials covers unknown usernames and bad passwords alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionInvalid covers missing, unknown and expired session tokens.
	ErrSessionInvalid = errors.New("invalid or expired session")
)

// Service owns password hashing and the opaque session lifecycle. Sessions
// are server-issued rows; validity is decided only by comparing expires_at
// against the clock at read time.
type Service struct {
	db         *sqlx.DB
	sessionTTL time.Duration
}

func NewService(db *sqlx.DB, sessionTTL time.Duration) *Service {
	return &Service{db: db, sessionTTL: sessionTTL}
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type loginRow struct {
	models.User
	Role string `db:"role"`
}

// Login verifies credentials and issues a new session. The returned identity
// carries the session token in SessionToken.
func (s *Service) Login(username, password string) (models.Identity, error) {
	var row loginRow
	err := s.db.Get(&row, `
		SELECT u.id, u.username, u.password_hash, u.full_name, u.entity_id, u.entity_name,
		       u.created_at, u.created_by, COALESCE(r.role, 'user') AS role
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE u.username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if s.CheckPassword(password, row.PasswordHash) != nil {
		return models.Identity{}, ErrInvalidCredentials
	}

	token := uuid.New().String()
	now := time.Now()
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), row.ID, token, now.Add(s.sessionTTL), now)
	if err != nil {
		return models.Identity{}, fmt.Errorf("create session: %w", err)
	}

	return models.Identity{
		UserID:       row.ID,
		Username:     row.Username,
		FullName:     row.FullName,
		EntityID:     row.EntityID,
		EntityName:   row.EntityName,
		Role:         row.Role,
		SessionToken: token,
	}, nil
}

type sessionRow struct {
	UserID     int64  `db:"user_id"`
	Username   string `db:"username"`
	FullName   string `db:"full_name"`
	EntityID   string `db:"entity_id"`
	EntityName string `db:"entity_name"`
	Role       string `db:"role"`
}

// VerifySession resolves a bearer token into an identity. A stored row whose
// expiry has passed never authorizes, no matter how well the token matches.
func (s *Service) VerifySession(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrSessionInvalid
	}

	var row sessionRow
	err := s.db.Get(&row, `
		SELECT s.user_id, u.username, u.full_name, u.entity_id, u.entity_name,
		       COALESCE(r.role, 'user') AS role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE s.token = $1 AND s.expires_at > now()`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, ErrSessionInvalid
		}
		return models.Identity{}, fmt.Errorf("verify session: %w", err)
	}

	return models.Identity{
		UserID:       row.UserID,
		Username:     row.Username,
		FullName:     row.FullName,
		EntityID:     row.EntityID,
		EntityName:   row.EntityName,
		Role:         row.Role,
		SessionToken: token,
	}, nil
}

// Logout revokes the session server-side. Unknown tokens are not an error.
func (s *Service) Logout(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = $1`, token)
	return err
}
