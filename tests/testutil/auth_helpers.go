package testutil

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/models"
)

// SetMockActor sets up an authenticated context the way the auth middleware
// chain leaves it
func SetMockActor(c *gin.Context, user *models.User) {
	c.Set("user_id", strconv.FormatUint(uint64(user.ID), 10))
	c.Set("actor", user)
}

// MockActorMiddleware authenticates every request as user
func MockActorMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockActor(c, user)
		c.Next()
	}
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
