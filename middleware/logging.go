package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const TraceIDHeader = "X-Trace-ID"
const TraceParentHeader = "traceparent"

// UserIDKey is the gin context key under which the auth gate publishes the
// resolved user id, so request logs can carry it.
const UserIDKey = "log_user_id"

// GetTraceID extracts trace-id from request headers or generates a new one
func GetTraceID(c *gin.Context) string {
	// W3C Trace Context first: version-trace_id-parent_id-flags
	if traceParent := c.GetHeader(TraceParentHeader); traceParent != "" {
		if id := traceIDFromParent(traceParent); id != "" {
			return id
		}
	}

	if traceID := c.GetHeader(TraceIDHeader); traceID != "" {
		return traceID
	}

	return generateTraceID()
}

// traceIDFromParent returns the trace-id field of a traceparent header value.
func traceIDFromParent(traceParent string) string {
	parts := strings.Split(traceParent, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// generateTraceID returns 16 random bytes hex encoded (32 characters).
func generateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LoggingMiddleware creates a Gin middleware for structured logging with trace-id using Zerolog
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Request-scoped logger, reachable through the request context.
		// With an active span it already carries the otel trace_id and span_id.
		ctx := pkgzerolog.WithContext(c.Request.Context())
		logger := *pkgzerolog.FromContext(ctx)

		var traceID string
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID = sc.TraceID().String()
		} else {
			traceID = GetTraceID(c)
			logger = logger.With().Str("trace_id", traceID).Logger()
			ctx = logger.WithContext(ctx)
		}
		c.Set("trace_id", traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(TraceIDHeader, traceID)

		c.Next()

		statusCode := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = logger.Error()
		case statusCode >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		if userID := c.GetString(UserIDKey); userID != "" {
			event = event.Str("user_id", userID)
		}

		event.
			Str("method", method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("HTTP request")
	}
}
