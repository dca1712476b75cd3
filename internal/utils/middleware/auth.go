package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/auth"
	"github.com/sportsclub/server/internal/utils/requestctx"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
	// RoleKey is the context key for the user's role.
	RoleKey = "role"
)

// RoleAdmin is the role allowed to override payment statuses and manage memberships.
const RoleAdmin = auth.RoleAdmin

// JWTValidator defines the interface for JWT token validation.
type JWTValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Auth returns a middleware that validates JWT tokens.
// If the token is valid, it sets user_id, email and role in the context.
// If optional is true, the middleware will not abort on missing/invalid tokens.
func Auth(validator JWTValidator, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			if !optional {
				abortAuth(c, "UNAUTHORIZED", "Authorization header required")
				return
			}
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			if !optional {
				abortAuth(c, "INVALID_TOKEN", "Invalid or expired token")
				return
			}
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(RoleKey, claims.Role)
		c.Request = c.Request.WithContext(requestctx.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// RequireAuth returns a middleware that requires a valid JWT token.
func RequireAuth(validator JWTValidator) gin.HandlerFunc {
	return Auth(validator, false)
}

// OptionalAuth returns a middleware that optionally validates JWT tokens.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return Auth(validator, true)
}

// RequireRole aborts with 403 unless the authenticated user has one of roles.
// It must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == uuid.Nil {
			abortAuth(c, "UNAUTHORIZED", "Authorization header required")
			return
		}
		if !HasRole(c, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

func abortAuth(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"code":  code,
	})
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
}

// GetUserID returns the user ID from context.
// Returns uuid.Nil if not found.
func GetUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(UserIDKey); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

// GetEmail returns the email from context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetRole returns the role from context.
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}

// HasRole reports whether the authenticated user has one of roles.
func HasRole(c *gin.Context, roles ...string) bool {
	role := GetRole(c)
	if role == "" {
		return false
	}
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
