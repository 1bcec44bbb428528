package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/pkg/utils"
)

const (
	// AuthorizationHeader authorization header name
	AuthorizationHeader = "Authorization"
	// BearerPrefix bearer token prefix
	BearerPrefix = "Bearer "
	// UserIDKey user ID context key
	UserIDKey = "user_id"
	// UserNameKey user display name context key
	UserNameKey = "user_name"
	// UserRoleKey user role context key
	UserRoleKey = "user_role"
)

// Admin role name. Presence records for users with this role count towards
// the "any admin online" state of a chat room.
const RoleAdmin = "admin"

// AuthConfig authentication configuration
type AuthConfig struct {
	// TokenValidator token validation function
	TokenValidator func(token string) (*UserInfo, error)
	// SkipPaths paths that skip authentication
	SkipPaths []string
	// RequiredRole required role
	RequiredRole string
}

// UserInfo authenticated user information
type UserInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Auth authentication middleware
func Auth(validator func(token string) (*UserInfo, error)) gin.HandlerFunc {
	return AuthWithConfig(AuthConfig{
		TokenValidator: validator,
	})
}

// AuthWithConfig authentication middleware with configuration
func AuthWithConfig(config AuthConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			utils.Error(c, utils.CodeUnauthorized, "Missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			utils.Error(c, utils.CodeUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			utils.Error(c, utils.CodeUnauthorized, "Missing token")
			c.Abort()
			return
		}

		userInfo, err := config.TokenValidator(token)
		if err != nil {
			utils.Error(c, utils.CodeUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		if config.RequiredRole != "" && userInfo.Role != config.RequiredRole {
			utils.Error(c, utils.CodeForbidden, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userInfo.ID)
		c.Set(UserNameKey, userInfo.Name)
		c.Set(UserRoleKey, userInfo.Role)

		c.Next()
	}
}

// RequireAuth middleware requiring authentication
func RequireAuth(validator func(token string) (*UserInfo, error)) gin.HandlerFunc {
	return Auth(validator)
}

// RequireRole middleware requiring a specific role
func RequireRole(validator func(token string) (*UserInfo, error), role string) gin.HandlerFunc {
	return AuthWithConfig(AuthConfig{
		TokenValidator: validator,
		RequiredRole:   role,
	})
}

// OptionalAuth optional authentication middleware. Attaches user info when a
// valid token is present, passes through otherwise.
func OptionalAuth(validator func(token string) (*UserInfo, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.Next()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			c.Next()
			return
		}

		userInfo, err := validator(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(UserIDKey, userInfo.ID)
		c.Set(UserNameKey, userInfo.Name)
		c.Set(UserRoleKey, userInfo.Role)
		c.Next()
	}
}

// GetUserID gets user ID from context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// GetUserName gets user display name from context
func GetUserName(c *gin.Context) (string, bool) {
	name, exists := c.Get(UserNameKey)
	if !exists {
		return "", false
	}
	if nameStr, ok := name.(string); ok {
		return nameStr, true
	}
	return "", false
}

// GetUserRole gets user role from context
func GetUserRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}

	if roleStr, ok := role.(string); ok {
		return roleStr, true
	}
	return "", false
}

// IsAdmin reports whether the current request is authenticated as an admin
func IsAdmin(c *gin.Context) bool {
	role, ok := GetUserRole(c)
	return ok && role == RoleAdmin
}
