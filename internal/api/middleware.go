package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scholarmatch/disambiguate/internal/logging"
)

// =============================================================================
// REQUEST LOGGING MIDDLEWARE
// =============================================================================

// RequestLoggingMiddleware logs every request/response pair through log. A
// response status of 400 or above is logged through LogError instead of
// LogResponse, since the error response handlers (BadRequestError and
// friends) don't register a Gin context error to inspect directly.
func RequestLoggingMiddleware(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method + " " + c.FullPath()
		log.LogRequest(method)

		c.Next()

		status := c.Writer.Status()
		duration := float64(time.Since(start).Milliseconds())
		if status >= http.StatusBadRequest {
			log.LogError(method, errors.New(http.StatusText(status)), "status", status)
			return
		}
		log.LogResponse(method, duration, "status", status)
	}
}

// =============================================================================
// AUTH MIDDLEWARE
// =============================================================================

// APIKeyAuthMiddleware returns middleware that checks for a valid API key.
// The health endpoint is exempt. No-op if apiKey is empty.
func APIKeyAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		if c.Request.URL.Path == "/v1/health" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] == apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == apiKey {
			c.Next()
			return
		}

		UnauthorizedError(c, "invalid or missing API key")
		c.Abort()
	}
}

// =============================================================================
// BODY SIZE MIDDLEWARE
// =============================================================================

// MaxBodySizeMiddleware returns middleware that limits request body size.
// A mention JSON object is small, so the default limit here is far below
// what a bulk-ingest endpoint would need.
func MaxBodySizeMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.ContentLength > maxBytes {
			PayloadTooLargeError(c, fmt.Sprintf("request body too large, maximum %d bytes", maxBytes))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

const (
	// MentionBodyLimit bounds one POST /v1/mentions payload.
	MentionBodyLimit = 256 * 1024
	// DefaultReviewLimit is GET /v1/review's limit when ?limit is absent.
	DefaultReviewLimit = 50
	// MaxReviewLimit caps ?limit to bound one tail read.
	MaxReviewLimit = 1000
)

// clampLimit clamps a requested review-queue tail size into
// [1, MaxReviewLimit], defaulting to DefaultReviewLimit when n <= 0.
func clampLimit(n int) int {
	if n <= 0 {
		return DefaultReviewLimit
	}
	if n > MaxReviewLimit {
		return MaxReviewLimit
	}
	return n
}
