// internal/api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"part-request-portal-api-server/config"
	"part-request-portal-api-server/internal/api/apierror"
	"part-request-portal-api-server/internal/api/middleware"
	"part-request-portal-api-server/internal/auth"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/session"
	"part-request-portal-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	Sessions session.Store
	Tokens   *auth.Tokens
	Admin    config.AdminConfig
	Hub      *socket.Hub
	Logger   *zap.Logger
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expiresIn"`
	Identity  models.Identity `json:"identity"`
}

// Login signs in the administrator.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if req.Username != h.Admin.Username || h.Admin.PasswordHash == "" ||
		!auth.CheckPasswordHash(req.Password, h.Admin.PasswordHash) {
		h.Logger.Warn("Failed admin login", zap.String("username", req.Username), zap.String("ip", c.ClientIP()))
		respondError(c, apierror.NewUnauthorized("invalid username or password"))
		return
	}

	h.issue(c, models.Identity{Role: models.RoleAdmin})
}

// StartSession opens an anonymous submitter session with no scope yet.
func (h *AuthHandler) StartSession(c *gin.Context) {
	h.issue(c, models.Identity{Role: models.RoleSubmitter})
}

// Logout ends the session and closes its sockets.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if err := h.Sessions.Delete(c.Request.Context(), sessionID); err != nil {
		respondError(c, apierror.NewInternalError("failed to end session"))
		return
	}
	h.Hub.Disconnect(sessionID)
	c.Status(http.StatusNoContent)
}

// Me returns the caller's current identity, including a pinned scope.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessionId": middleware.GetSessionID(c),
		"identity":  identity(c),
	})
}

func (h *AuthHandler) issue(c *gin.Context, id models.Identity) {
	sess, err := h.Sessions.Create(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("Failed to create session", zap.Error(err))
		respondError(c, apierror.NewInternalError("failed to create session"))
		return
	}
	token, err := h.Tokens.GenerateJWT(sess.ID, string(id.Role))
	if err != nil {
		h.Logger.Error("Failed to sign token", zap.Error(err))
		respondError(c, apierror.NewInternalError("failed to create session"))
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		ExpiresIn: int64(h.Tokens.TTL().Seconds()),
		Identity:  sess.Identity,
	})
}
