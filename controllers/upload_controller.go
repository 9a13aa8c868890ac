package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/services"
	"github.com/neraa-rental/orders-api/utils"
)

// photoDir is where the local storage backend keeps order photos
func photoDir() string {
	if local, ok := services.GetImageService().(*services.LocalImageService); ok {
		return local.Dir()
	}
	return utils.UploadDir
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves order photos
// stored by the local storage backend
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	switch {
	case filename == "":
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required")
		return
	case !utils.IsSafeFilename(filename):
		respondError(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	case !utils.IsAllowedImage(filename):
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only image files are served")
		return
	}

	path := filepath.Join(photoDir(), filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		respondError(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", utils.ContentType(filename))
	c.Header("Cache-Control", "private, max-age=86400")
	c.File(path)
}
