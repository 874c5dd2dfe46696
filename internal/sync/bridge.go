package sync

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/models"
)

// Bridge actions.
const (
	ActionAuthenticate = "authenticate"
	ActionSync         = "sync"
	ActionExport       = "export"
	ActionReceive      = "receive"
	ActionReturn       = "return"
)

// Remote tokens are persisted with a fixed validity window.
const tokenTTL = 24 * time.Hour

var (
	ErrConnectionNotFound = errors.New("connection not found or inactive")
	ErrRemoteAuth         = errors.New("failed to authenticate with external system")
	errRemoteUnauthorized = errors.New("remote rejected token")
)

// Bridge relays correspondence operations to external systems. It caches one
// remote session token per connection and re-authenticates exactly once when
// the remote rejects a stale token; there is no further retry.
type Bridge struct {
	db     *sqlx.DB
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewBridge(db *sqlx.DB, logger *zap.Logger) *Bridge {
	return &Bridge{
		db:     db,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

func (b *Bridge) connection(id string) (models.ExternalConnection, error) {
	var conn models.ExternalConnection
	err := b.db.Get(&conn, `
		SELECT * FROM external_connections WHERE id = $1 AND is_active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return conn, ErrConnectionNotFound
	}
	if err != nil {
		return conn, fmt.Errorf("load connection: %w", err)
	}
	return conn, nil
}

func (b *Bridge) setStatus(id, status string, syncErr error) {
	var msg *string
	if syncErr != nil {
		s := syncErr.Error()
		msg = &s
	}
	if _, err := b.db.Exec(`
		UPDATE external_connections
		SET sync_status = $1, sync_error = $2, updated_at = $3
		WHERE id = $4`, status, msg, b.now(), id); err != nil {
		b.logger.Warn("update connection status failed",
			zap.String("connection_id", id), zap.Error(err))
	}
}

func (b *Bridge) logOutcome(connID string, corrID *string, op, status string, docID *string, reqPayload, respPayload any, opErr error) {
	var reqJSON, respJSON, errMsg *string
	if reqPayload != nil {
		if data, err := json.Marshal(reqPayload); err == nil {
			s := string(data)
			reqJSON = &s
		}
	}
	if respPayload != nil {
		if data, err := json.Marshal(respPayload); err == nil {
			s := string(data)
			respJSON = &s
		}
	}
	if opErr != nil {
		s := opErr.Error()
		errMsg = &s
	}

	if _, err := b.db.Exec(`
		INSERT INTO sync_log
			(id, connection_id, correspondence_id, operation, status,
			 external_doc_id, request_payload, response_payload, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New().String(), connID, corrID, op, status,
		docID, reqJSON, respJSON, errMsg, b.now()); err != nil {
		b.logger.Warn("write sync log failed", zap.String("connection_id", connID), zap.Error(err))
	}
}

// Authenticate performs the SOAP login and persists the returned token with
// a fresh validity window.
func (b *Bridge) Authenticate(ctx context.Context, connectionID string) (string, error) {
	conn, err := b.connection(connectionID)
	if err != nil {
		return "", err
	}
	token, err := b.authenticate(ctx, conn)
	if err != nil {
		b.setStatus(connectionID, models.SyncError, err)
		return "", err
	}
	return token, nil
}

func (b *Bridge) authenticate(ctx context.Context, conn models.ExternalConnection) (string, error) {
	body, err := buildLoginEnvelope(conn.Username, conn.Password)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conn.BaseURL+"/Login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", actionNS+"Login")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteAuth, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRemoteAuth, resp.StatusCode)
	}

	token, err := parseLoginResponse(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteAuth, err)
	}

	now := b.now()
	_, err = b.db.Exec(`
		UPDATE external_connections
		SET session_token = $1, session_expires_at = $2, last_sync_at = $3,
		    sync_status = $4, sync_error = NULL, updated_at = $3
		WHERE id = $5`,
		token, now.Add(tokenTTL), now, models.SyncConnected, conn.ID)
	if err != nil {
		return "", fmt.Errorf("persist remote session: %w", err)
	}

	b.logger.Info("remote authentication succeeded", zap.String("connection_id", conn.ID))
	return token, nil
}

// ensureToken returns the cached token when still valid, authenticating
// otherwise. Callers holding a fresh token never trigger a second login.
func (b *Bridge) ensureToken(ctx context.Context, conn models.ExternalConnection) (string, error) {
	if conn.TokenValidAt(b.now()) {
		return *conn.SessionToken, nil
	}
	return b.authenticate(ctx, conn)
}

// SyncResult summarizes one sync call.
type SyncResult struct {
	Count int `json:"count"`
}

// Sync pulls correspondence headers changed since the last sync and records
// the outcome.
func (b *Bridge) Sync(ctx context.Context, connectionID string) (SyncResult, error) {
	conn, err := b.connection(connectionID)
	if err != nil {
		return SyncResult{}, err
	}

	token, err := b.ensureToken(ctx, conn)
	if err != nil {
		b.setStatus(connectionID, models.SyncError, err)
		b.logOutcome(connectionID, nil, ActionSync, "error", nil, nil, nil, err)
		return SyncResult{}, err
	}

	lastSync := time.Unix(0, 0)
	if conn.LastSyncAt != nil {
		lastSync = *conn.LastSyncAt
	}

	docs, err := b.fetchCorrespondences(ctx, conn, token, lastSync)
	if errors.Is(err, errRemoteUnauthorized) {
		// Stale cached token: authenticate once and retry.
		if token, err = b.authenticate(ctx, conn); err == nil {
			docs, err = b.fetchCorrespondences(ctx, conn, token, lastSync)
		}
	}
	if err != nil {
		b.setStatus(connectionID, models.SyncError, err)
		b.logOutcome(connectionID, nil, ActionSync, "error", nil, nil, nil, err)
		return SyncResult{}, err
	}

	now := b.now()
	if _, err := b.db.Exec(`
		UPDATE external_connections
		SET last_sync_at = $1, sync_status = $2, sync_error = NULL, updated_at = $1
		WHERE id = $3`, now, models.SyncSynced, connectionID); err != nil {
		return SyncResult{}, fmt.Errorf("update sync state: %w", err)
	}

	result := SyncResult{Count: len(docs)}
	b.logOutcome(connectionID, nil, ActionSync, "success", nil,
		map[string]string{"action": "GetCorrespondences"}, result, nil)
	return result, nil
}

func (b *Bridge) fetchCorrespondences(ctx context.Context, conn models.ExternalConnection, token string, since time.Time) ([]RemoteCorrespondence, error) {
	body, err := buildSyncEnvelope(token, since)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conn.BaseURL+"/GetCorrespondences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", actionNS+"GetCorrespondences")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errRemoteUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sync failed: status %d", resp.StatusCode)
	}

	return parseSyncResponse(data)
}

// ExportMetadata is the document header sent to the remote system.
type ExportMetadata struct {
	Number     string `json:"number"`
	Date       string `json:"date"`
	Subject    string `json:"subject"`
	FromEntity string `json:"from_entity"`
	ToEntity   string `json:"to_entity"`
	Content    string `json:"content"`
}

// Export pushes a correspondence to the remote system and stores the
// returned document id on the local row.
func (b *Bridge) Export(ctx context.Context, connectionID, correspondenceID string) (string, error) {
	conn, err := b.connection(connectionID)
	if err != nil {
		return "", err
	}

	var c models.Correspondence
	if err := b.db.Get(&c, `SELECT * FROM correspondences WHERE id = $1`, correspondenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("correspondence not found")
		}
		return "", fmt.Errorf("load correspondence: %w", err)
	}

	meta := ExportMetadata{
		Number:     c.Number,
		Date:       c.Date.UTC().Format(time.RFC3339),
		Subject:    c.Subject,
		FromEntity: c.FromEntity,
		ToEntity:   c.ReceivedByEntity,
		Content:    c.Content,
	}

	var out struct {
		DocID string `json:"docId"`
	}
	err = b.relay(ctx, conn, "/user/correspondence/export", map[string]any{"metadata": meta}, &out)
	if err != nil {
		b.setStatus(connectionID, models.SyncError, err)
		b.logOutcome(connectionID, &correspondenceID, ActionExport, "error", nil, meta, nil, err)
		return "", err
	}

	if out.DocID != "" {
		if _, err := b.db.Exec(`
			UPDATE correspondences
			SET external_doc_id = $1, external_connection_id = $2, updated_at = $3
			WHERE id = $4`, out.DocID, connectionID, b.now(), correspondenceID); err != nil {
			return "", fmt.Errorf("record external doc id: %w", err)
		}
	}

	b.logOutcome(connectionID, &correspondenceID, ActionExport, "success", &out.DocID, meta, out, nil)
	return out.DocID, nil
}

// ReceivePayload acknowledges receipt of a remote document.
type ReceivePayload struct {
	ExternalDocID      string `json:"docId" binding:"required"`
	MessagingHistoryID string `json:"messagingHistoryId"`
	Comments           string `json:"comments"`
	ReceivedByName     string `json:"receivedByName"`
	ReceiveByOuName    string `json:"receiveByOuName"`
}

func (b *Bridge) Receive(ctx context.Context, connectionID string, correspondenceID *string, p ReceivePayload) error {
	return b.simpleRelay(ctx, connectionID, correspondenceID, ActionReceive, "/user/correspondence/receive", p, &p.ExternalDocID)
}

// ReturnPayload sends a remote document back to its originator.
type ReturnPayload struct {
	ExternalDocID      string `json:"docId" binding:"required"`
	MessagingHistoryID string `json:"messagingHistoryId"`
}

func (b *Bridge) Return(ctx context.Context, connectionID string, correspondenceID *string, p ReturnPayload) error {
	return b.simpleRelay(ctx, connectionID, correspondenceID, ActionReturn, "/user/correspondence/return", p, &p.ExternalDocID)
}

func (b *Bridge) simpleRelay(ctx context.Context, connectionID string, correspondenceID *string, action, path string, payload any, docID *string) error {
	conn, err := b.connection(connectionID)
	if err != nil {
		return err
	}

	var out map[string]any
	if err := b.relay(ctx, conn, path, payload, &out); err != nil {
		b.setStatus(connectionID, models.SyncError, err)
		b.logOutcome(connectionID, correspondenceID, action, "error", docID, payload, nil, err)
		return err
	}

	b.logOutcome(connectionID, correspondenceID, action, "success", docID, payload, out, nil)
	return nil
}

// relay performs one authenticated PUT against the remote HTTP surface,
// re-authenticating once on a rejected token.
func (b *Bridge) relay(ctx context.Context, conn models.ExternalConnection, path string, payload, out any) error {
	token, err := b.ensureToken(ctx, conn)
	if err != nil {
		return err
	}

	status, err := b.doRelay(ctx, conn.BaseURL+path, token, payload, out)
	if err == nil && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		if token, err = b.authenticate(ctx, conn); err != nil {
			return err
		}
		status, err = b.doRelay(ctx, conn.BaseURL+path, token, payload, out)
	}
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("remote call failed: status %d", status)
	}
	return nil
}

func (b *Bridge) doRelay(ctx context.Context, url, token string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("remote call: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode remote response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
