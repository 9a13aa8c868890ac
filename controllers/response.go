package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/middleware"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/services"
	"github.com/neraa-rental/orders-api/utils"
	"go.uber.org/zap"
)

// statusForCode maps a domain error code to an HTTP status
func statusForCode(code string) int {
	switch code {
	case services.CodeNotFound, services.CodeNothingToExport:
		return http.StatusNotFound
	case services.CodeForbidden:
		return http.StatusForbidden
	case services.CodeUnauthorized:
		return http.StatusUnauthorized
	case services.CodeInvalidState, services.CodeAlreadyExists, services.CodeLockTimeout:
		return http.StatusConflict
	case services.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// handleError writes the error envelope for err. Unknown errors are logged
// and reported as INTERNAL_ERROR.
func handleError(c *gin.Context, err error) {
	var domainErr *services.DomainError
	var uploadErr *utils.FileUploadError
	var renderErr *services.RenderError

	switch {
	case errors.As(err, &domainErr):
		respondError(c, statusForCode(domainErr.Code), domainErr.Code, domainErr.Message)
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.As(err, &renderErr):
		logger.FromGin(c).Error("Bill rendering failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, renderErr.Code, "Failed to render bill")
	default:
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// currentActor returns the authenticated staff member, writing a 401 when
// the auth chain did not set one
func currentActor(c *gin.Context) (*models.User, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}
	return actor, true
}

// orderIDParam parses the :id path parameter, writing a 400 when malformed
func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID")
		return 0, false
	}
	return uint(id), true
}
