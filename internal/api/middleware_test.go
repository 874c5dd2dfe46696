package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/diwanhq/diwan/internal/models"
)

func testContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	return c
}

func TestSessionTokenFromPrefersBody(t *testing.T) {
	c := testContext(t)
	c.Request.Header.Set("X-Session-Token", "header-token")
	assert.Equal(t, "body-token", sessionTokenFrom(c, "body-token"))
}

func TestSessionTokenFromFallsBackToHeader(t *testing.T) {
	c := testContext(t)
	c.Request.Header.Set("X-Session-Token", "header-token")
	assert.Equal(t, "header-token", sessionTokenFrom(c, ""))
}

func TestIdentityFromMissing(t *testing.T) {
	c := testContext(t)
	_, ok := identityFrom(c)
	assert.False(t, ok)
}

func TestIdentityFromRoundTrip(t *testing.T) {
	c := testContext(t)
	c.Set(identityKey, models.Identity{UserID: 3, Role: models.RoleAdmin})
	ident, ok := identityFrom(c)
	assert.True(t, ok)
	assert.True(t, ident.IsAdmin())
}

func TestUploadExtensionPolicy(t *testing.T) {
	assert.True(t, allowedExtensions["attachments"][".pdf"])
	assert.True(t, allowedExtensions["signatures"][".png"])
	assert.False(t, allowedExtensions["signatures"][".pdf"])
	assert.False(t, allowedExtensions["pdfs"][".exe"])
	assert.False(t, allowedExtensions["attachments"][".sh"])
}
