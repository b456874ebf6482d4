// internal/api/middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"part-request-portal-api-server/internal/api/apierror"
	"part-request-portal-api-server/internal/auth"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionIDContextKey = "session_id"
	IdentityContextKey  = "identity"
)

// Authenticate validates the bearer token, loads its session and stores the
// caller identity in the context. WebSocket clients may pass the token as
// the "token" query parameter instead of a header.
func Authenticate(tokens *auth.Tokens, sessions session.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abort(c, apierror.NewUnauthorized("authorization token is required"))
			return
		}

		claims, err := tokens.ParseJWT(tokenString)
		if err != nil {
			logger.Debug("Invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abort(c, apierror.NewUnauthorized("invalid or expired token"))
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if errors.Is(err, session.ErrNotFound) {
			abort(c, apierror.NewUnauthorized("session has ended"))
			return
		}
		if err != nil {
			logger.Error("Failed to load session", zap.String("session_id", claims.SessionID), zap.Error(err))
			abort(c, apierror.NewInternalError("failed to load session"))
			return
		}

		c.Set(SessionIDContextKey, sess.ID)
		c.Set(IdentityContextKey, sess.Identity)
		c.Next()
	}
}

// Authorize only lets callers with one of the given roles through.
func Authorize(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, apierror.NewInternalError("identity not found in context"))
			return
		}
		for _, role := range allowedRoles {
			if role == id.Role {
				c.Next()
				return
			}
		}
		abort(c, apierror.NewForbidden())
	}
}

// GetIdentity returns the caller identity set by Authenticate.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(IdentityContextKey)
	if !exists {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// GetSessionID returns the session id set by Authenticate.
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDContextKey)
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		return token, found && token != ""
	}
	token := c.Query("token")
	return token, token != ""
}

func abort(c *gin.Context, err *apierror.StandardError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), err)
}

