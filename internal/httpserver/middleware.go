package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"storefront/internal/auth"
)

const (
	requestIDHeader   = "X-Request-ID"
	idempotencyHeader = "Idempotency-Key"
	identityKey       = "identity"
)

// requestLogger logs one line per request, with severity following the
// response status.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if id, ok := identityFrom(c); ok {
			fields = append(fields, zap.String("user_id", id.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
		abortError(c, http.StatusInternalServerError, "InternalError", "internal server error", nil)
	})
}

// authenticate verifies the bearer token when present. With required set,
// a missing token is rejected; a malformed or expired token is always
// rejected.
func authenticate(verifier TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if c.GetHeader("Authorization") != "" || required {
				abortError(c, http.StatusUnauthorized, "Unauthorized", "a valid bearer token is required", nil)
				return
			}
			c.Next()
			return
		}
		identity, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrNotConfigured) {
				abortError(c, http.StatusServiceUnavailable, "AuthUnavailable", "authentication is not configured", nil)
				return
			}
			abortError(c, http.StatusUnauthorized, "Unauthorized", "invalid or expired token", nil)
			return
		}
		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok || !identity.IsAdmin() {
			abortError(c, http.StatusForbidden, "Forbidden", "admin role required", nil)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}

// mustIdentity is used behind authenticate(required); the identity is
// always present there.
func mustIdentity(c *gin.Context) *auth.Identity {
	identity, _ := identityFrom(c)
	return identity
}
