package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

const identityKey = "identity"

// authMiddleware resolves the bearer token to an identity before any handler
// runs. Missing, malformed and expired tokens are all rejected the same way.
func authMiddleware(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		ident, err := a.Auth().VerifySession(parts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid or expired session"})
			c.Abort()
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok || !ident.IsAdmin() {
			c.JSON(403, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := v.(models.Identity)
	return ident, ok
}

// sessionTokenFrom covers the endpoints that accept the token outside the
// Authorization header (request body or X-Session-Token), as the admin
// frontend sends it.
func sessionTokenFrom(c *gin.Context, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	return c.GetHeader("X-Session-Token")
}
