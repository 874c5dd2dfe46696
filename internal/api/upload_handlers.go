package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/app"
)

const maxUploadBytes = 10 << 20

// Allowed extensions per upload kind. Anything else is rejected outright.
var allowedExtensions = map[string]map[string]bool{
	"attachments": {".pdf": true, ".doc": true, ".docx": true, ".xls": true,
		".xlsx": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true},
	"signatures": {".png": true, ".jpg": true, ".jpeg": true},
	"pdfs":       {".pdf": true},
}

func handleUpload(a *app.App, c *gin.Context, kind string) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(400, gin.H{"error": "No file provided"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(400, gin.H{"error": "File exceeds the 10MB limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[kind][ext] {
		c.JSON(400, gin.H{"error": "File type not allowed"})
		return
	}

	dir := filepath.Join(a.Config().UploadDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.Logger().Error("upload dir create failed", zap.String("dir", dir), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to store file"})
		return
	}

	// Stored names are random so a client can never address another upload.
	name := uuid.New().String() + ext
	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		a.Logger().Error("upload save failed", zap.String("dst", dst), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(201, gin.H{
		"filename": name,
		"url":      fmt.Sprintf("/uploads/%s/%s", kind, name),
		"size":     file.Size,
	})
}
