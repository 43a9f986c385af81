package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/handlers"
	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return c.Query("token")
}

// resolveViewer verifies the bearer token when present and stores the viewer
// on the request context. Reports whether the request may proceed.
func resolveViewer(c *gin.Context, log *logger.Logger, auth services.AuthService) bool {
	token := extractToken(c)
	if token == "" {
		return true
	}
	viewer, err := auth.VerifyToken(c.Request.Context(), token)
	if err != nil {
		log.Debug("Token rejected", "error", err)
		handlers.RespondError(c, err)
		return false
	}
	ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
		TokenString: token,
		Viewer:      viewer,
	})
	c.Request = c.Request.WithContext(ctx)
	return true
}

// OptionalAuth lets anonymous requests through but still rejects a
// present-but-invalid token rather than silently downgrading it.
func OptionalAuth(log *logger.Logger, auth services.AuthService) gin.HandlerFunc {
	authLog := log.With("middleware", "OptionalAuth")
	return func(c *gin.Context) {
		if !resolveViewer(c, authLog, auth) {
			return
		}
		c.Next()
	}
}

// RequireAuth is OptionalAuth plus a hard requirement that a viewer exists.
func RequireAuth(log *logger.Logger, auth services.AuthService) gin.HandlerFunc {
	authLog := log.With("middleware", "RequireAuth")
	return func(c *gin.Context) {
		if !resolveViewer(c, authLog, auth) {
			return
		}
		if requestdata.Viewer(c.Request.Context()) == nil {
			handlers.RespondError(c, apierr.Unauthenticated("authentication required"))
			return
		}
		c.Next()
	}
}
