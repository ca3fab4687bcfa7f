// Package middleware contains the Gin middleware of the storefront API:
// correlation ids, the redacting access logger, panic recovery, the client
// profile resolver, the admin session, checkout idempotency, the edge rate
// limiter, Prometheus instrumentation and security headers.
//
// Recommended order: RequestID, Profile, RedactingLogger, Recovery, then
// the rest, so every log line and error body carries the request id.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	requestIDHeader   = "X-Request-ID"
	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// RequestID reuses X-Request-ID when the client sent one, otherwise
// generates a UUID, and echoes it on the response.
//
// The id is stored in the Gin context under "requestID" and read back by
// RequestIDFrom. Every ErrorResponse body and access log line carries it,
// so a shopper's screenshot of an error can be matched to the server log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id of the request, or "" when
// RequestID has not run.
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Recovery turns a panic into a JSON 500 with the request id and logs the
// stack. If the handler already wrote a response only the status is set.
//
// Response body:
//
//	{"request_id": "...", "code": "internal_error", "message": "internal server error"}
//
// Register it after RequestID and RedactingLogger so the panic log line is
// correlated and redacted like every other line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := RequestIDFrom(c)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, rid)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": rid,
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger,
// or a copy of the global logger when none is attached. Handlers use it so
// their lines carry the request id and profile.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString returns v if it is a string, otherwise "".
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
