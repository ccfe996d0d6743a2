package v1

import (
	"net/http"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/session-auth-service/internal/core/domain"
	logicv1 "github.com/duynhne/session-auth-service/internal/logic/v1"
	"github.com/duynhne/session-auth-service/middleware"
)

// Context keys. The soft and the verified identity never share a key, so a
// handler cannot mistake one for the other.
const (
	requesterKey = "auth_requester"
	identityKey  = "auth_identity"
)

// AuthGate rejects protected requests without a valid access token and
// attaches the resolved identity to the gin context.
func AuthGate(gate *logicv1.Gatekeeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middleware.StartSpan(c.Request.Context(), "auth.gate", trace.WithAttributes(
			attribute.String("layer", "web"),
			attribute.String("method", c.Request.Method),
			attribute.String("path", c.Request.URL.Path),
		))
		defer span.End()

		d := gate.Decide(c.Request.URL.RequestURI(), c.Request.Method, c.GetHeader("Authorization"))
		span.SetAttributes(attribute.Bool("route.public", d.Public))

		if d.Err != nil {
			reason := logicv1.UnauthorizedReason(d.Err)
			span.SetAttributes(attribute.String("auth.reason", reason))
			middleware.RecordAuthEvent("gate", "rejected_"+reason)
			pkgzerolog.FromContext(ctx).Warn().Err(d.Err).Str("reason", reason).Msg("Request rejected by auth gate")
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorResponse{
				Message: unauthorizedMessage(reason),
				Reason:  reason,
			})
			return
		}

		switch {
		case d.Identity != nil:
			c.Set(identityKey, *d.Identity)
			c.Set(middleware.UserIDKey, d.Identity.UserID)
		case d.Requester != nil:
			c.Set(requesterKey, *d.Requester)
			c.Set(middleware.UserIDKey, d.Requester.UserID)
		}
		c.Next()
	}
}

// Identity returns the verified identity of a protected request.
func Identity(c *gin.Context) (logicv1.TokenPayload, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return logicv1.TokenPayload{}, false
	}
	p, ok := v.(logicv1.TokenPayload)
	return p, ok
}

// OptionalRequester returns the best-effort identity of a public request,
// for personalization only. Nil when the caller is anonymous.
func OptionalRequester(c *gin.Context) *logicv1.TokenPayload {
	v, ok := c.Get(requesterKey)
	if !ok {
		return nil
	}
	p, ok := v.(logicv1.TokenPayload)
	if !ok {
		return nil
	}
	return &p
}

func unauthorizedMessage(reason string) string {
	switch reason {
	case logicv1.ReasonMissing:
		return "Authorization token required"
	case logicv1.ReasonExpired:
		return "Token expired."
	default:
		return "Invalid token. Request is not authorized."
	}
}
