package api

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type UserListRequest struct {
	SessionToken string `json:"sessionToken"`
}

type UserUpdateRequest struct {
	SessionToken string  `json:"sessionToken"`
	UserID       int64   `json:"user_id" binding:"required"`
	FullName     *string `json:"full_name"`
	EntityID     *string `json:"entity_id"`
	Password     *string `json:"password"`
}

type userWithRole struct {
	models.User
	Role string `db:"role" json:"role"`
}

// requireAdminToken verifies a body/header session token and ensures the
// caller is an admin. Used by the user-management endpoints that sit outside
// the bearer-token middleware.
func requireAdminToken(a *app.App, c *gin.Context, bodyToken string) (models.Identity, bool) {
	token := sessionTokenFrom(c, bodyToken)
	if token == "" {
		c.JSON(401, gin.H{"error": "Session token is required"})
		return models.Identity{}, false
	}

	ident, err := a.Auth().VerifySession(token)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid or expired session"})
		return models.Identity{}, false
	}
	if !ident.IsAdmin() {
		c.JSON(403, gin.H{"error": "Admin access required"})
		return models.Identity{}, false
	}
	return ident, true
}

func handleListUsers(a *app.App, c *gin.Context) {
	var in UserListRequest
	_ = c.ShouldBindJSON(&in)

	if _, ok := requireAdminToken(a, c, in.SessionToken); !ok {
		return
	}

	var users []userWithRole
	err := a.DB().Select(&users, `
		SELECT u.*, COALESCE(r.role, 'user') AS role
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		a.Logger().Error("list users failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(200, users)
}

func handleUpdateUser(a *app.App, c *gin.Context) {
	var in UserUpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	if _, ok := requireAdminToken(a, c, in.SessionToken); !ok {
		return
	}

	set := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.FullName != nil {
		add("full_name", *in.FullName)
	}
	if in.EntityID != nil {
		var entityName string
		if *in.EntityID != "" {
			if err := a.DB().Get(&entityName, "SELECT name FROM entities WHERE id=$1", *in.EntityID); err != nil {
				c.JSON(400, gin.H{"error": "Entity does not exist"})
				return
			}
		}
		add("entity_id", *in.EntityID)
		add("entity_name", entityName)
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := a.Auth().HashPassword(*in.Password)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to update user"})
			return
		}
		add("password_hash", hash)
	}

	if len(set) == 0 {
		c.JSON(400, gin.H{"error": "No updates provided"})
		return
	}

	args = append(args, in.UserID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	result, err := a.DB().Exec(query, args...)
	if err != nil {
		a.Logger().Error("update user failed", zap.Int64("user_id", in.UserID), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to update user"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	}
	c.JSON(200, gin.H{"message": "User updated successfully"})
}

func handleGetUser(a *app.App, c *gin.Context) {
	var user userWithRole
	err := a.DB().Get(&user, `
		SELECT u.*, COALESCE(r.role, 'user') AS role
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE u.id = $1`, c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch user"})
		return
	}
	c.JSON(200, user)
}
