package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestTraceIDFromParent(t *testing.T) {
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736",
		traceIDFromParent("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"))
	assert.Equal(t, "", traceIDFromParent("garbage"))
}

func TestGetTraceID_Precedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	c := newCtx(map[string]string{
		TraceParentHeader: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		TraceIDHeader:     "explicit",
	})
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(c))

	c = newCtx(map[string]string{TraceIDHeader: "explicit"})
	assert.Equal(t, "explicit", GetTraceID(c))

	c = newCtx(nil)
	assert.Len(t, GetTraceID(c), 32)
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/me", func(c *gin.Context) {
		c.Set(UserIDKey, "507f1f77bcf86cd799439011")
		pkgzerolog.FromContext(c.Request.Context()).Info().Msg("inside handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(TraceIDHeader))

	out := buf.String()
	assert.Contains(t, out, `"message":"inside handler"`)
	assert.Contains(t, out, `"trace_id":"trace-123"`)
	assert.Contains(t, out, `"user_id":"507f1f77bcf86cd799439011"`)
	assert.Contains(t, out, `"status":204`)
}

func TestLoggingMiddleware_ActiveSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceID, spanID string
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "request")
		defer span.End()
		traceID = span.SpanContext().TraceID().String()
		spanID = span.SpanContext().SpanID().String()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(LoggingMiddleware())
	r.GET("/me", func(c *gin.Context) {
		pkgzerolog.FromContext(c.Request.Context()).Info().Msg("inside handler")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(TraceIDHeader, "ignored")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, traceID, w.Header().Get(TraceIDHeader))

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"`+traceID+`"`)
	assert.Contains(t, out, `"span_id":"`+spanID+`"`)
	assert.NotContains(t, out, "ignored")
}
