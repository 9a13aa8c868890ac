package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/services"
)

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateStaffRequest represents the request body for creating a staff account
type CreateStaffRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"omitempty,email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Login handles POST /api/v1/auth/login - exchanges credentials for a bearer token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	result, err := services.GetStaffService().Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, result)
}

// GetCurrentUser handles GET /api/v1/auth/me - the authenticated staff member
func GetCurrentUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	respondData(c, http.StatusOK, actor)
}

// CreateStaff handles POST /api/v1/admin/staff - admins provision staff accounts
func CreateStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	user, err := services.GetStaffService().CreateStaff(c.Request.Context(), actor, services.CreateStaffInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusCreated, user)
}

// ListStaff handles GET /api/v1/admin/staff
func ListStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	staff, err := services.GetStaffService().ListStaff(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, staff)
}
