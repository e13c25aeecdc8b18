package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ismailsoloyt12-stack/zetsuserv/services"
	"github.com/ismailsoloyt12-stack/zetsuserv/utils"
)

// UploadAttachment handles POST /api/v1/uploads - stores a project attachment
// ahead of submission and returns its storage key
func UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "A file is required",
			},
		})
		return
	}

	if err := utils.ValidateAttachment(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		code := "VALIDATION_ERROR"
		if errors.As(err, &uploadErr) {
			code = uploadErr.Code
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	storage := services.GetStorage()
	if storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "File storage is not configured",
			},
		})
		return
	}

	key, err := storage.UploadFile(fileHeader, "attachments")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to store file",
			},
		})
		return
	}

	url, err := storage.GetPresignedURL(key)
	if err != nil {
		url = ""
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"key":      key,
			"url":      url,
			"filename": fileHeader.Filename,
			"size":     fileHeader.Size,
		},
	})
}
