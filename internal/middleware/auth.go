package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/glavarch/gpzu/internal/config"
)

const (
	// UserKey is the context key for the authenticated operator's login.
	UserKey = "user"
	// UserNameKey is the context key for the operator's display name.
	UserNameKey = "user_name"
)

// BasicAuth verifies the Basic credential carried on every request against
// the configured operator accounts. There is no session state: the
// credential travels with each request and a 401 anywhere forces
// re-authentication on the client. With no configured users the check is
// disabled (development mode).
func BasicAuth(users []config.UserEntry) gin.HandlerFunc {
	byLogin := make(map[string]config.UserEntry, len(users))
	for _, u := range users {
		byLogin[u.Login] = u
	}

	return func(c *gin.Context) {
		if len(byLogin) == 0 {
			c.Next()
			return
		}

		// Preflight requests carry no credentials
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		login, password, ok := c.Request.BasicAuth()
		if !ok {
			unauthorized(c, "authorization required")
			return
		}

		user, exists := byLogin[login]
		if !exists || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			unauthorized(c, "invalid credentials")
			return
		}

		c.Set(UserKey, user.Login)
		c.Set(UserNameKey, user.DisplayName)

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Basic realm="gpzu"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       "UNAUTHORIZED",
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
	c.Abort()
}

// GetUser retrieves the authenticated operator's login from the context.
// Returns an empty string when authentication is disabled.
func GetUser(c *gin.Context) string {
	if user, exists := c.Get(UserKey); exists {
		if login, ok := user.(string); ok {
			return login
		}
	}
	return ""
}

// GetUserName retrieves the operator's display name from the context.
func GetUserName(c *gin.Context) string {
	if name, exists := c.Get(UserNameKey); exists {
		if displayName, ok := name.(string); ok {
			return displayName
		}
	}
	return ""
}
