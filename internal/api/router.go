package api

import (
	"github.com/gin-gonic/gin"

	"github.com/diwanhq/diwan/internal/app"
)

// SetupRouter wires every HTTP endpoint, using thin closure wrappers so each
// handler receives the running *app.App instance.
func SetupRouter(a *app.App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "diwan"})
	})
	r.Static("/uploads", a.Config().UploadDir)

	/* ---------- public endpoints ---------- */
	r.POST("/api/auth/signup", func(c *gin.Context) { handleSignup(a, c) })
	r.POST("/api/auth/login", func(c *gin.Context) { handleLogin(a, c) })
	r.POST("/api/auth/verify-session", func(c *gin.Context) { handleVerifySession(a, c) })

	// Admin user management reads the session token from the request body or
	// X-Session-Token, the way the management frontend sends it.
	r.POST("/api/users/list", func(c *gin.Context) { handleListUsers(a, c) })
	r.POST("/api/users/update", func(c *gin.Context) { handleUpdateUser(a, c) })

	/* ---------- protected endpoints ---------- */
	api := r.Group("/api")
	api.Use(authMiddleware(a))
	{
		api.POST("/auth/logout", func(c *gin.Context) { handleLogout(a, c) })

		api.GET("/users/:id", func(c *gin.Context) { handleGetUser(a, c) })

		api.GET("/correspondences", func(c *gin.Context) { handleListCorrespondences(a, c) })
		api.GET("/correspondences/:id", func(c *gin.Context) { handleGetCorrespondence(a, c) })
		api.POST("/correspondences", func(c *gin.Context) { handleCreateCorrespondence(a, c) })
		api.PUT("/correspondences/:id", func(c *gin.Context) { handleUpdateCorrespondence(a, c) })
		api.POST("/correspondences/:id/archive", func(c *gin.Context) { handleArchiveCorrespondence(a, c) })

		api.GET("/entities", func(c *gin.Context) { handleListEntities(a, c) })

		api.GET("/comments/correspondence/:id", func(c *gin.Context) { handleListComments(a, c) })
		api.POST("/comments", func(c *gin.Context) { handleCreateComment(a, c) })
		api.PUT("/comments/:id", func(c *gin.Context) { handleUpdateComment(a, c) })
		api.DELETE("/comments/:id", func(c *gin.Context) { handleDeleteComment(a, c) })

		api.GET("/notifications", func(c *gin.Context) { handleListNotifications(a, c) })
		api.GET("/notifications/unread/count", func(c *gin.Context) { handleUnreadCount(a, c) })
		api.PUT("/notifications/mark-all-read", func(c *gin.Context) { handleMarkAllRead(a, c) })
		api.PUT("/notifications/:id/read", func(c *gin.Context) { handleMarkNotificationRead(a, c) })

		api.GET("/templates", func(c *gin.Context) { handleListTemplates(a, c) })
		api.GET("/templates/:id", func(c *gin.Context) { handleGetTemplate(a, c) })
		api.POST("/templates", func(c *gin.Context) { handleCreateTemplate(a, c) })
		api.POST("/templates/:id/use", func(c *gin.Context) { handleUseTemplate(a, c) })

		api.POST("/upload/attachment", func(c *gin.Context) { handleUpload(a, c, "attachments") })
		api.POST("/upload/signature", func(c *gin.Context) { handleUpload(a, c, "signatures") })
		api.POST("/upload/pdf", func(c *gin.Context) { handleUpload(a, c, "pdfs") })

		api.GET("/statistics/dashboard", func(c *gin.Context) { handleDashboardStats(a, c) })
		api.GET("/statistics/correspondences/by-type", func(c *gin.Context) { handleStatsByType(a, c) })
		api.GET("/statistics/correspondences/by-entity", func(c *gin.Context) { handleStatsByEntity(a, c) })
		api.GET("/statistics/correspondences/timeline", func(c *gin.Context) { handleStatsTimeline(a, c) })

		api.POST("/external/:id/:action", func(c *gin.Context) { handleExternalAction(a, c) })

		/* ----- admin sub-group ----- */
		admin := api.Group("")
		admin.Use(adminMiddleware())
		{
			admin.POST("/entities", func(c *gin.Context) { handleCreateEntity(a, c) })
			admin.DELETE("/correspondences/:id", func(c *gin.Context) { handleDeleteCorrespondence(a, c) })

			admin.GET("/connections", func(c *gin.Context) { handleListConnections(a, c) })
			admin.POST("/connections", func(c *gin.Context) { handleCreateConnection(a, c) })
			admin.PUT("/connections/:id", func(c *gin.Context) { handleUpdateConnection(a, c) })
			admin.DELETE("/connections/:id", func(c *gin.Context) { handleDeleteConnection(a, c) })
		}
	}

	return r
}
