package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/glavarch/gpzu/internal/errors"
	"github.com/glavarch/gpzu/internal/middleware"
)

// AuthHandler serves the identity endpoints. Authentication itself is
// per-request Basic handled in middleware; these endpoints only report
// who the request authenticated as.
type AuthHandler struct{}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// MeResponse represents the authenticated operator.
type MeResponse struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Me handles GET /api/v1/auth/me endpoint.
func (h *AuthHandler) Me(c *gin.Context) {
	login := middleware.GetUser(c)
	if login == "" {
		apierrors.Unauthorized(c, "Authentication required")
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		Login: login,
		Name:  middleware.GetUserName(c),
	})
}

// Logout handles POST /api/v1/auth/logout endpoint. The server keeps no
// session; the 401 challenge makes browsers drop the cached credential.
func (h *AuthHandler) Logout(c *gin.Context) {
	apierrors.Unauthorized(c, "Logged out")
}
