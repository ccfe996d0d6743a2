package v1

import (
	"errors"
	"io"
	"net/http"
	"runtime/debug"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/session-auth-service/internal/core/domain"
	logicv1 "github.com/duynhne/session-auth-service/internal/logic/v1"
	"github.com/duynhne/session-auth-service/middleware"
)

// refreshCookieMaxAge is 30 days, in seconds.
const refreshCookieMaxAge = 30 * 24 * 60 * 60

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	auth     *logicv1.AuthService
	cookie   CookieConfig
	recorder *ErrorRecorder
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService, cookie CookieConfig, recorder *ErrorRecorder) *Handler {
	if cookie.Name == "" {
		cookie.Name = "refreshToken"
	}
	return &Handler{auth: auth, cookie: cookie, recorder: recorder}
}

// RegisterRoutes registers all auth API v1 routes on the given router group.
// Which of them are public is decided by the auth gate, not here.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
	rg.POST("/signup", h.Signup)
	rg.POST("/renew-access-token", h.RenewAccessToken)
	rg.GET("/users/:userId", h.GetUser)

	rg.POST("/logout", h.Logout)
	rg.POST("/logout-all", h.LogoutAll)
	rg.GET("/sessions", h.ListSessions)
	rg.GET("/me", h.GetMe)
	rg.DELETE("/me", h.DeleteMe)
}

// startSpan opens the request span and moves the request onto its context.
func startSpan(c *gin.Context) trace.Span {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	c.Request = c.Request.WithContext(ctx)
	return span
}

// bindJSON decodes an optional JSON body. An empty body leaves v untouched
// so that the field validation reports what is missing.
func bindJSON(c *gin.Context, span trace.Span, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		pkgzerolog.FromContext(c.Request.Context()).Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{Message: "Invalid request body"})
		return false
	}
	span.SetAttributes(attribute.Bool("request.valid", true))
	return true
}

// Login handles HTTP request for user login.
// POST /login
func (h *Handler) Login(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.LoginRequest
	if !bindJSON(c, span, &req) {
		return
	}

	pair, err := h.auth.Login(ctx, req, domain.DeviceContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Login failed")
		h.respondError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, refreshCookieMaxAge)
	logger.Info().Msg("Login successful")
	c.JSON(http.StatusOK, domain.AccessTokenResponse{
		Message:     "Login successful",
		AccessToken: pair.AccessToken,
	})
}

// Signup handles HTTP request for user registration.
// POST /signup
func (h *Handler) Signup(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.SignupRequest
	if !bindJSON(c, span, &req) {
		return
	}

	user, err := h.auth.Signup(ctx, req)
	if err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Signup failed")
		h.respondError(c, err)
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("Signup successful")
	c.JSON(http.StatusCreated, domain.MessageResponse{Message: "Signup successful"})
}

// RenewAccessToken exchanges a refresh token for a new access token.
// POST /renew-access-token
// The token is read from the body, or from the refresh cookie when absent.
func (h *Handler) RenewAccessToken(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	var req domain.RenewRequest
	if !bindJSON(c, span, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie(h.cookie.Name); err == nil {
			token = cookie
			span.SetAttributes(attribute.Bool("token.from_cookie", true))
		}
	}

	access, err := h.auth.RenewAccessToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		pkgzerolog.FromContext(ctx).Warn().Err(err).Msg("Token renewal failed")
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.AccessTokenResponse{Message: "Success", AccessToken: access})
}

// GetUser returns the public profile of a user.
// GET /users/:userId
func (h *Handler) GetUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	requester := OptionalRequester(c)
	span.SetAttributes(attribute.Bool("auth.requester", requester != nil))

	profile, err := h.auth.PublicProfile(c.Request.Context(), c.Param("userId"), requester)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Logout revokes the current session.
// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), identity); err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, domain.MessageResponse{Message: "Logout successful"})
}

// LogoutAll revokes every session of the current user.
// POST /logout-all
func (h *Handler) LogoutAll(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	n, err := h.auth.LogoutAll(c.Request.Context(), identity)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, domain.RevokedResponse{Message: "Logged out from all devices", Revoked: n})
}

// ListSessions lists the live sessions of the current user.
// GET /sessions
func (h *Handler) ListSessions(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	sessions, err := h.auth.ListSessions(c.Request.Context(), identity)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SessionsResponse{Sessions: sessions})
}

// GetMe returns the current user.
// GET /me
// Authorization: Bearer <token>
func (h *Handler) GetMe(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), identity)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteMe removes the current user's account and signs them out everywhere.
// DELETE /me
func (h *Handler) DeleteMe(c *gin.Context) {
	span := startSpan(c)
	defer span.End()

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.auth.DeleteAccount(c.Request.Context(), identity); err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	pkgzerolog.FromContext(c.Request.Context()).Info().Str("user_id", identity.UserID).Msg("Account deleted")
	c.JSON(http.StatusOK, domain.MessageResponse{Message: "Account deleted"})
}

// identity reads the verified identity placed by AuthGate. Its absence means
// the route was registered without the gate in front of it.
func (h *Handler) identity(c *gin.Context) (logicv1.TokenPayload, bool) {
	identity, ok := Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, domain.ErrorResponse{
			Message: unauthorizedMessage(logicv1.ReasonMissing),
			Reason:  logicv1.ReasonMissing,
		})
	}
	return identity, ok
}

func (h *Handler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

// respondError maps business errors to HTTP responses. Anything unexpected
// goes through the error recorder and yields a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *logicv1.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{Message: "Validation failed", ValidationErrors: verr.Fields})
	case errors.Is(err, logicv1.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{Message: "Invalid email or password"})
	case errors.Is(err, logicv1.ErrUnauthorized):
		reason := logicv1.UnauthorizedReason(err)
		c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Message: unauthorizedMessage(reason), Reason: reason})
	case errors.Is(err, logicv1.ErrUserExists):
		c.JSON(http.StatusConflict, domain.ErrorResponse{Message: "Email already exists"})
	case errors.Is(err, logicv1.ErrUserNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{Message: "User not found"})
	case errors.Is(err, logicv1.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{Message: "Session not found"})
	default:
		file, source := callerFrame(1)
		if h.recorder != nil {
			h.recorder.Record(c.Request.Context(), http.StatusInternalServerError, err, file, source, string(debug.Stack()))
		}
		c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Message: internalErrorMessage})
	}
}
