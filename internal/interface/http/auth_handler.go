package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/pkg/helpers"
	"github.com/oksasatya/tripdesk/pkg/response"
)

type AuthHandler struct {
	Auth    *application.AuthService
	Cookies *helpers.Manager
	Logger  *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies, Logger: logger}
}

type loginRequest struct {
	UID      string `json:"uid" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues the session cookie. No cookie is written on failure.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	u, tok, err := h.Auth.Authenticate(c.Request.Context(), req.UID, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Cookies.Set(c, tok.Value, tok.ExpiresAt)
	response.Success(c, http.StatusOK, u.Map(), "authenticated", gin.H{"expires_at": tok.ExpiresAt})
}

// Logout overwrites the session cookie with an already-expired token.
func (h *AuthHandler) Logout(c *gin.Context) {
	repl, err := h.Auth.Invalidate(c.Request.Context(), h.Cookies.Token(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Cookies.Expire(c, repl.Value)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
