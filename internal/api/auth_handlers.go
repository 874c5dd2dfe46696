package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/auth"
)

type UserLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserSignup struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	EntityID string `json:"entity_id"`
}

type SessionVerify struct {
	SessionToken string `json:"sessionToken"`
}

func handleSignup(a *app.App, c *gin.Context) {
	res, err := a.Limiter().Check(c.ClientIP(), "signup")
	if err != nil {
		a.Logger().Error("signup rate check failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}
	if res.Blocked {
		c.JSON(429, gin.H{"error": "Too many signup attempts", "blockedUntil": res.BlockedUntil})
		return
	}

	var in UserSignup
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	var cnt int
	if err := a.DB().Get(&cnt, "SELECT COUNT(*) FROM users WHERE username=$1", in.Username); err != nil {
		c.JSON(500, gin.H{"error": "Database error"})
		return
	}
	if cnt > 0 {
		c.JSON(400, gin.H{"error": "User already exists"})
		return
	}

	hash, err := a.Auth().HashPassword(in.Password)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to create user"})
		return
	}

	var entityName string
	if in.EntityID != "" {
		if err := a.DB().Get(&entityName, "SELECT name FROM entities WHERE id=$1", in.EntityID); err != nil {
			c.JSON(400, gin.H{"error": "Entity does not exist"})
			return
		}
	}

	var id int64
	err = a.DB().QueryRow(`
		INSERT INTO users (username, password_hash, full_name, entity_id, entity_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.Username, hash, in.FullName, in.EntityID, entityName, time.Now()).Scan(&id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(201, gin.H{"id": id, "message": "User registered successfully"})
}

func handleLogin(a *app.App, c *gin.Context) {
	var in UserLogin
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Username and password are required"})
		return
	}

	res, err := a.Limiter().Check(in.Username, "login")
	if err != nil {
		a.Logger().Error("login rate check failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}
	if res.Blocked {
		c.JSON(429, gin.H{"error": "Too many login attempts", "blockedUntil": res.BlockedUntil})
		return
	}

	ident, err := a.Auth().Login(in.Username, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(401, gin.H{"error": "Invalid username or password"})
			return
		}
		a.Logger().Error("login failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Login failed"})
		return
	}

	// Successful authentication clears the failed-attempt window.
	if err := a.Limiter().Reset(in.Username, "login"); err != nil {
		a.Logger().Warn("rate limit reset failed", zap.String("username", in.Username), zap.Error(err))
	}

	c.JSON(200, gin.H{
		"session": gin.H{
			"access_token": ident.SessionToken,
			"user": gin.H{
				"id":          ident.UserID,
				"username":    ident.Username,
				"full_name":   ident.FullName,
				"entity_id":   ident.EntityID,
				"entity_name": ident.EntityName,
				"role":        ident.Role,
			},
		},
	})
}

func handleVerifySession(a *app.App, c *gin.Context) {
	var in SessionVerify
	if err := c.ShouldBindJSON(&in); err != nil || in.SessionToken == "" {
		c.JSON(401, gin.H{"error": "Session token is required"})
		return
	}

	ident, err := a.Auth().VerifySession(in.SessionToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalid) {
			c.JSON(401, gin.H{"error": "Invalid or expired session"})
			return
		}
		a.Logger().Error("verify session failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Session verification failed"})
		return
	}

	c.JSON(200, ident)
}

func handleLogout(a *app.App, c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}
	if err := a.Auth().Logout(ident.SessionToken); err != nil {
		c.JSON(500, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(200, gin.H{"message": "Logged out"})
}
