package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tanvircsebd/marathonX-server/internal/auth"
	"github.com/tanvircsebd/marathonX-server/pkg/response"
)

const (
	// ContextUserEmail is the key for the verified user email in gin context.
	ContextUserEmail = "user_email"
	// ContextUserName is the key for the user display name in gin context.
	ContextUserName = "user_name"
)

// Session returns a middleware that validates the session cookie and sets the
// verified identity in the request context. Runs before any domain logic, so an
// unauthorized request never reaches a repository.
func Session(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			response.Unauthorized(c, "missing session cookie")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserName, claims.Name)
		c.Next()
	}
}

// UserEmail returns the verified email set by Session, or "" when absent.
func UserEmail(c *gin.Context) string {
	if v, ok := c.Get(ContextUserEmail); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
