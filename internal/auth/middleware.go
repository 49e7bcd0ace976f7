package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	contextKeyUserID = "user_id"
	contextKeyEmail  = "user_email"
)

// UserIDFromContext returns the current user ID set by RequireToken. "" if not set.
func UserIDFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyUserID)
	if !ok {
		return ""
	}
	id, ok := v.(string)
	if !ok {
		return ""
	}
	return id
}

// EmailFromContext returns the email embedded in the verified token. "" if not set.
func EmailFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyEmail)
	if !ok {
		return ""
	}
	email, ok := v.(string)
	if !ok {
		return ""
	}
	return email
}

// RequireToken returns a middleware that verifies the Authorization bearer token
// and sets the current user ID and email in context. If missing or invalid, responds with 401.
func RequireToken(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		userID, email, err := issuer.Resolve(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Set(contextKeyEmail, email)
		c.Next()
	}
}
