package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
	"github.com/diwanhq/diwan/internal/models"
)

type EntityCreate struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

func handleListEntities(a *app.App, c *gin.Context) {
	// Older installs carry duplicate entity names; present each name once.
	var entities []models.Entity
	err := a.DB().Select(&entities, `
		SELECT DISTINCT ON (name) * FROM entities ORDER BY name, created_at`)
	if err != nil {
		a.Logger().Error("list entities failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch entities"})
		return
	}
	c.JSON(200, entities)
}

func handleCreateEntity(a *app.App, c *gin.Context) {
	var in EntityCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Entity name is required"})
		return
	}
	if in.Type == "" {
		in.Type = "both"
	}

	var cnt int
	if err := a.DB().Get(&cnt, `SELECT COUNT(*) FROM entities WHERE name = $1`, in.Name); err != nil {
		c.JSON(500, gin.H{"error": "Database error"})
		return
	}
	if cnt > 0 {
		c.JSON(400, gin.H{"error": "Entity already exists"})
		return
	}

	id := uuid.New().String()
	_, err := a.DB().Exec(`
		INSERT INTO entities (id, name, type, created_at)
		VALUES ($1, $2, $3, $4)`, id, in.Name, in.Type, time.Now())
	if err != nil {
		a.Logger().Error("create entity failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create entity"})
		return
	}
	c.JSON(201, gin.H{"id": id, "message": "Entity created successfully"})
}
