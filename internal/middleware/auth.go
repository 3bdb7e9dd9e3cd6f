package middleware

import (
	"net/http"
	"strings"

	"github.com/crewline/crewline-backend/internal/store"
	"github.com/crewline/crewline-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the caller's identity from a bearer token. Session
// issuance belongs to the auth system; this is only the consumption point.
func AuthMiddleware(jwtSecret string, directory store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(jwtSecret, parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Verify the user still exists
		if _, err := directory.GetUser(c.Request.Context(), claims.UserID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Next()
	}
}
