package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
)

const (
	// AuthorizationHeader is the HTTP header name for authorization tokens
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the expected prefix for Bearer tokens in the Authorization header
	BearerPrefix = "Bearer "
	// ClaimsContextKey is the Gin context key for storing JWT claims
	ClaimsContextKey = "claims"
)

// JWTMiddleware creates a Gin middleware that requires a valid console token
// and a live registry entry for its session.
func JWTMiddleware(jwtManager *JWTManager, registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := jwtManager.Verify(tokenString)
		if err != nil {
			var message string
			switch err {
			case ErrExpiredToken:
				message = "Token has expired"
			case ErrInvalidToken:
				message = "Invalid token"
			default:
				message = "Token verification failed"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		if _, ok := registry.Get(claims.SessionID); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session no longer active"})
			c.Abort()
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Next()
	}
}

// GetClaims extracts JWT claims from the Gin context if they exist
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsContextKey)
	if !exists {
		return nil, false
	}
	userClaims, ok := claims.(*Claims)
	return userClaims, ok
}

// RequireCapability creates a middleware that requires the session's current
// capability record to grant the named capability. The registry entry, not
// the token, is the authority: a stale token from before a role switch
// cannot carry the old role's permissions.
func RequireCapability(registry *Registry, capability rbac.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := GetClaims(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		entry, ok := registry.Get(claims.SessionID)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session no longer active"})
			c.Abort()
			return
		}

		if !entry.Context.Capabilities().Has(capability) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}
