package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/ports"
)

const identityKey = "tutti.identity"

// Guard decides whether a raw token authenticates a request
type Guard interface {
	VerifyCredential(ctx context.Context, rawToken string) core.AuthResult
}

// AuthMiddleware creates middleware that authenticates requests by bearer header or cookie
func AuthMiddleware(guard Guard, cookieName string, recorder ports.AuthRecorder, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := ExtractCredential(c.Request, cookieName)

		result := guard.VerifyCredential(c.Request.Context(), token)
		recorder.RecordDecision(result)

		if !result.IsAuthenticated() {
			log.Debug("request rejected", "path", c.FullPath(), "reason", result.Label())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		SetIdentity(c, result.Identity)
		c.Next()
	}
}

// SetIdentity attaches a verified identity to the request
func SetIdentity(c *gin.Context, id core.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity attached by AuthMiddleware
func IdentityFrom(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return core.Identity{}, false
	}
	id, ok := v.(core.Identity)
	return id, ok
}

// RequestLogger logs every request once it has been served
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}
