package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/config"
	"github.com/diwanhq/diwan/internal/models"
)

func sampleCorrespondence() models.Correspondence {
	return models.Correspondence{
		ID:          "corr-1",
		Number:      "42/2026",
		Type:        models.TypeOutgoing,
		Subject:     "budget review",
		FromEntity:  "Ministry",
		Date:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Content:     "full text",
		Greeting:    "السيد/",
		DisplayType: models.DisplayContent,
		Attachments: pq.StringArray{"a.pdf"},
		Status:      models.StatusDraft,
	}
}

func TestPresentCorrespondenceRenamesFromEntity(t *testing.T) {
	out := presentCorrespondence(sampleCorrespondence())
	assert.Equal(t, "Ministry", out["from"])
	assert.Equal(t, "Ministry", out["from_entity"])
}

func TestPresentCorrespondenceArchivedIsBool(t *testing.T) {
	c := sampleCorrespondence()
	c.Archived = 1
	out := presentCorrespondence(c)

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["archived"])
}

// attachment_only records never leak composed content, regardless of what is
// stored in those columns.
func TestPresentCorrespondenceAttachmentOnly(t *testing.T) {
	c := sampleCorrespondence()
	c.DisplayType = models.DisplayAttachmentOnly
	out := presentCorrespondence(c)

	assert.Equal(t, "", out["subject"])
	assert.Equal(t, "", out["content"])
	assert.Equal(t, "", out["greeting"])
	assert.Equal(t, []string{"a.pdf"}, out["attachments"])
}

func TestPresentCorrespondenceNilAttachments(t *testing.T) {
	c := sampleCorrespondence()
	c.Attachments = nil
	out := presentCorrespondence(c)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attachments":[]`)
}

/* ---------- handler tests over a mocked store ---------- */

func newHandlerApp(t *testing.T) (*app.App, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	cfg := config.Config{RateLimits: config.DefaultRateLimits()}
	return app.NewWithDB(cfg, sqlx.NewDb(mockDB, "sqlmock"), zap.NewNop()), mock
}

func handlerContext(t *testing.T, method, body string, ident models.Identity) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/api/correspondences/corr-1", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "corr-1"}}
	c.Set(identityKey, ident)
	return c, w
}

func correspondenceDBColumns() []string {
	return []string{"id", "number", "type", "subject", "from_entity",
		"received_by_entity", "date", "content", "greeting", "responsible_person",
		"signature_url", "display_type", "attachments", "notes", "status",
		"received_by", "received_at", "created_by", "created_at", "updated_at",
		"archived", "pdf_url", "external_doc_id", "external_connection_id"}
}

func correspondenceDBRow(displayType string, archived int, externalDocID *string) *sqlmock.Rows {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(correspondenceDBColumns()).
		AddRow("corr-1", "42/2026", "outgoing", "budget review", "Ministry",
			"Agency", now, "full text", "السيد/", "", "", displayType, "{}", nil,
			"draft", nil, nil, nil, now, now, archived, nil, externalDocID, nil)
}

func TestUpdateCorrespondenceDisplayTypeFrozenWhenArchived(t *testing.T) {
	a, mock := newHandlerApp(t)

	mock.ExpectQuery("SELECT \\* FROM correspondences").
		WithArgs("corr-1").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 1, nil))

	c, w := handlerContext(t, http.MethodPut, `{"display_type":"attachment_only"}`, models.Identity{UserID: 1})
	handleUpdateCorrespondence(a, c)

	assert.Equal(t, 409, w.Code)
	assert.Contains(t, w.Body.String(), "display_type")
	// No UPDATE may reach the store.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCorrespondenceDisplayTypeFrozenAfterExport(t *testing.T) {
	a, mock := newHandlerApp(t)

	docID := "EXT-9"
	mock.ExpectQuery("SELECT \\* FROM correspondences").
		WithArgs("corr-1").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 0, &docID))

	c, w := handlerContext(t, http.MethodPut, `{"display_type":"attachment_only"}`, models.Identity{UserID: 1})
	handleUpdateCorrespondence(a, c)

	assert.Equal(t, 409, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Writing the stored value back is not a change and must go through.
func TestUpdateCorrespondenceSameDisplayTypeOnArchived(t *testing.T) {
	a, mock := newHandlerApp(t)

	mock.ExpectQuery("SELECT \\* FROM correspondences").
		WithArgs("corr-1").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 1, nil))
	mock.ExpectExec("UPDATE correspondences SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, w := handlerContext(t, http.MethodPut,
		`{"display_type":"content","subject":"revised"}`, models.Identity{UserID: 1})
	handleUpdateCorrespondence(a, c)

	assert.Equal(t, 200, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCorrespondenceDisplayTypeChangesOnDraft(t *testing.T) {
	a, mock := newHandlerApp(t)

	mock.ExpectQuery("SELECT \\* FROM correspondences").
		WithArgs("corr-1").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 0, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correspondences SET display_type = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, w := handlerContext(t, http.MethodPut, `{"display_type":"attachment_only"}`, models.Identity{UserID: 1})
	handleUpdateCorrespondence(a, c)

	assert.Equal(t, 200, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCorrespondencesAdminSeesAll(t *testing.T) {
	a, mock := newHandlerApp(t)

	mock.ExpectQuery("SELECT \\* FROM correspondences ORDER BY date DESC").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 0, nil))

	c, w := handlerContext(t, http.MethodGet, "", models.Identity{UserID: 1, Role: models.RoleAdmin, EntityName: "Ministry"})
	handleListCorrespondences(a, c)

	assert.Equal(t, 200, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Non-admin listings only return traffic touching the caller's own entity.
func TestListCorrespondencesScopedToCallerEntity(t *testing.T) {
	a, mock := newHandlerApp(t)

	mock.ExpectQuery("WHERE from_entity = \\$1 OR received_by_entity = \\$1").
		WithArgs("Agency").
		WillReturnRows(correspondenceDBRow(models.DisplayContent, 0, nil))

	c, w := handlerContext(t, http.MethodGet, "", models.Identity{UserID: 2, Role: models.RoleUser, EntityName: "Agency"})
	handleListCorrespondences(a, c)

	assert.Equal(t, 200, w.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Agency", out[0]["received_by_entity"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
