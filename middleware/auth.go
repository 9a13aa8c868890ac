package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/models"
	"go.uber.org/zap"
)

// Gin context keys set by the auth chain
const (
	UserIDKey = "user_id"
	ClaimsKey = "validated_claims"
	ActorKey  = "actor"
)

// CustomClaims contains the application claims carried by access tokens
type CustomClaims struct {
	Role string `json:"role"`
}

// Validate rejects tokens without a known role
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.Role != models.RoleStaff && c.Role != models.RoleAdmin {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// NewValidator builds the HS256 token validator for the configured issuer and audience
func NewValidator(cfg *config.Config) (*validator.Validator, error) {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	return validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config, zapLogger *zap.Logger) (gin.HandlerFunc, error) {
	log := logger.OrNop(zapLogger)

	jwtValidator, err := NewValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Debug("Encountered error while validating JWT", zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Warn("Failed to write error response", zap.Error(writeErr))
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(UserIDKey, token.RegisteredClaims.Subject)
			c.Set(ClaimsKey, token)
			c.Request = r
			passed = true
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// ActorLoader resolves the staff member behind a token subject
type ActorLoader interface {
	Actor(ctx context.Context, id uint) (*models.User, error)
}

// RequireActor loads the authenticated staff member and stores it in the
// context. The role comes from the database, not from the token.
func RequireActor(loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			abortUnauthorized(c, "Could not extract user information")
			return
		}

		id, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			abortUnauthorized(c, "Invalid token subject")
			return
		}

		actor, err := loader.Actor(c.Request.Context(), uint(id))
		if err != nil || actor == nil {
			abortUnauthorized(c, "Staff account not found")
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the staff member set by RequireActor
func GetActor(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_ACTOR", Message: "Authenticated staff not found in context"}
	}

	actor, ok := value.(*models.User)
	if !ok || actor == nil {
		return nil, &AuthError{Code: "INVALID_ACTOR", Message: "Authenticated staff has an unexpected type"}
	}

	return actor, nil
}

// RequireAdmin is a middleware that only lets admins through
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			abortUnauthorized(c, "Could not extract user information")
			return
		}

		if !actor.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Admin access required",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
	c.Abort()
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
