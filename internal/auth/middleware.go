package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	handleKey = "handle"
	editorKey = "editor"
)

// AuthMiddleware validates JWT tokens and protects routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			log.Printf("[Auth] Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(handleKey, claims.Handle)
		c.Set(editorKey, claims.Editor)

		c.Next()
	}
}

// EditorOnly rejects callers whose token does not carry the editor claim.
// It must run after AuthMiddleware.
func EditorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsEditor(c) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Editor access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetHandle retrieves the caller's handle from the context
func GetHandle(c *gin.Context) (string, bool) {
	value, exists := c.Get(handleKey)
	if !exists {
		return "", false
	}

	handle, ok := value.(string)
	return handle, ok
}

// IsEditor reports whether the caller is a proposal editor
func IsEditor(c *gin.Context) bool {
	return c.GetBool(editorKey)
}
