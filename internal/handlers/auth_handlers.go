package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dockmon/internal/middleware"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

// AuthHandlers serves login/logout for the dashboard and API clients.
type AuthHandlers struct {
	users *store.UserStore
	auth  *middleware.AuthService
	log   *utils.Logger
}

func NewAuthHandlers(users *store.UserStore, auth *middleware.AuthService, logger *utils.Logger) *AuthHandlers {
	return &AuthHandlers{users: users, auth: auth, log: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

// APILogin verifies credentials and issues a JWT, both in the response
// body and as an HTTP-only cookie.
func (h *AuthHandlers) APILogin(c *gin.Context) {
	var req loginRequest
	if !middleware.BindValidated(c, &req) {
		return
	}
	username := middleware.SanitizeString(req.Username)

	user, err := h.users.ByUsername(c.Request.Context(), username)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			h.log.Writef("Login: user lookup failed: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !h.auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		h.log.Writef("Login: token generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// APILogout clears the auth cookie.
func (h *AuthHandlers) APILogout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
