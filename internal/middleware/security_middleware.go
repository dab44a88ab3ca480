package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-rental-ledger/internal/auth"
	"go-rental-ledger/internal/inventory"
)

// AuthMiddleware admits requests carrying a valid bearer JWT. The token's
// username is attached to the request context as the ledger actor, so every
// audit row written downstream names who did it.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "a bearer token is required"})
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is invalid or expired"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Request = c.Request.WithContext(inventory.WithActor(c.Request.Context(), claims.Username))
		c.Next()
	}
}

// bearerToken extracts the credentials of an RFC 6750 header. The scheme name
// is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole admits only users whose token carries one of roles. It must run
// after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + role + " may not use this endpoint"})
	}
}
