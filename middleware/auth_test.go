package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "test-secret",
		JWTIssuer:   "neraa-orders-api",
		JWTAudience: "neraa-orders",
	}
}

type stubLoader struct {
	users map[uint]*models.User
}

func (s *stubLoader) Actor(ctx context.Context, id uint) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, errors.New("not found")
}

func TestCustomClaims_Validate(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		wantErr bool
	}{
		{name: "staff role", role: models.RoleStaff},
		{name: "admin role", role: models.RoleAdmin},
		{name: "empty role", role: "", wantErr: true},
		{name: "unknown role", role: "owner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CustomClaims{Role: tt.role}.Validate(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	handler, err := EnsureValidToken(cfg, nil)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", handler, func(c *gin.Context) {
		userID, err := GetUserID(c)
		require.NoError(t, err)
		claims, err := GetClaims(c)
		require.NoError(t, err)
		role := claims.CustomClaims.(*CustomClaims).Role
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})

	staff := &models.User{ID: 42, Username: "asha", Role: models.RoleStaff}

	t.Run("accepts a token issued by the token service", func(t *testing.T) {
		tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Hour)
		token, _, err := tokens.IssueToken(staff)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":"42"`)
		assert.Contains(t, w.Body.String(), `"role":"staff"`)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		tokens := services.NewTokenService("other-secret", cfg.JWTIssuer, cfg.JWTAudience, time.Hour)
		token, _, err := tokens.IssueToken(staff)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a token for another audience", func(t *testing.T) {
		tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, "someone-else", time.Hour)
		token, _, err := tokens.IssueToken(staff)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantID    string
		wantErr   bool
	}{
		{
			name: "successfully extracts user ID",
			setupFunc: func(c *gin.Context) {
				c.Set(UserIDKey, "7")
			},
			wantID: "7",
		},
		{
			name:      "user ID not found in context",
			setupFunc: func(c *gin.Context) {},
			wantErr:   true,
		},
		{
			name: "user ID is not a string",
			setupFunc: func(c *gin.Context) {
				c.Set(UserIDKey, 7)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupFunc(c)

			got, err := GetUserID(c)
			if tt.wantErr {
				assert.Error(t, err)
				assert.IsType(t, &AuthError{}, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantID, got)
		})
	}
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns stored claims", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		claims := &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "7"},
			CustomClaims:     &CustomClaims{Role: models.RoleAdmin},
		}
		c.Set(ClaimsKey, claims)

		got, err := GetClaims(c)
		require.NoError(t, err)
		assert.Equal(t, "7", got.RegisteredClaims.Subject)
	})

	t.Run("missing claims", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, err := GetClaims(c)
		assert.Error(t, err)
	})

	t.Run("claims of the wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(ClaimsKey, "not claims")
		_, err := GetClaims(c)
		assert.Error(t, err)
	})
}

func TestRequireActorAndAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	staff := &models.User{ID: 1, Username: "asha", Role: models.RoleStaff}
	admin := &models.User{ID: 2, Username: "root", Role: models.RoleAdmin}
	loader := &stubLoader{users: map[uint]*models.User{1: staff, 2: admin}}

	newRouter := func(subject string) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if subject != "" {
				c.Set(UserIDKey, subject)
			}
			c.Next()
		})
		router.Use(RequireActor(loader))
		router.GET("/me", func(c *gin.Context) {
			actor, err := GetActor(c)
			require.NoError(t, err)
			c.JSON(http.StatusOK, gin.H{"username": actor.Username})
		})
		router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return router
	}

	tests := []struct {
		name       string
		subject    string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "staff resolves", subject: "1", path: "/me", wantStatus: http.StatusOK, wantBody: "asha"},
		{name: "admin resolves", subject: "2", path: "/me", wantStatus: http.StatusOK, wantBody: "root"},
		{name: "missing subject", subject: "", path: "/me", wantStatus: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "non-numeric subject", subject: "auth0|1", path: "/me", wantStatus: http.StatusUnauthorized, wantBody: "Invalid token subject"},
		{name: "unknown staff", subject: "99", path: "/me", wantStatus: http.StatusUnauthorized, wantBody: "Staff account not found"},
		{name: "staff denied admin route", subject: "1", path: "/admin", wantStatus: http.StatusForbidden, wantBody: "FORBIDDEN"},
		{name: "admin allowed admin route", subject: "2", path: "/admin", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			newRouter(tt.subject).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGetActor_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetActor(c)
	assert.Error(t, err)

	c.Set(ActorKey, "not a user")
	_, err = GetActor(c)
	assert.Error(t, err)
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Code: "TEST_ERROR", Message: "Test error message"}
	assert.Equal(t, "Test error message", err.Error())
}
