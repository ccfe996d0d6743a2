// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common authentication failures.
// These errors are wrapped with context using fmt.Errorf("%w") when returned
// from business logic methods. Two typed errors carry extra data and unwrap
// to their sentinel: *ValidationError (per-field problems) and
// *UnauthorizedError (a machine-readable reason).
//
// Error Checking (in handlers):
//
//	var verr *logicv1.ValidationError
//	switch {
//	case errors.As(err, &verr):
//	    c.JSON(http.StatusBadRequest, verr.Fields)
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email or password"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
//	}
package v1

import (
	"errors"
	"fmt"
	"strings"

	"github.com/duynhne/session-auth-service/config"
	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// Sentinel errors for authentication operations.
var (
	// ErrValidation indicates the request input failed field validation.
	// HTTP Status: 400 Bad Request
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	// The two cases are deliberately indistinguishable.
	// HTTP Status: 400 Bad Request
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserExists indicates the email is already registered.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("email already exists")

	// ErrUnauthorized indicates a missing, expired or malformed token.
	// HTTP Status: 401 Unauthorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the token is past its expiration.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a bad signature, algorithm, kind or structure.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUserNotFound indicates the user does not exist or was deleted.
	// HTTP Status: 404 on public lookups, 401 during renewal
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates the session does not exist or was revoked.
	// HTTP Status: 404 Not Found
	ErrSessionNotFound = errors.New("session not found")

	// ErrPersistence indicates the credential store failed.
	// HTTP Status: 500 Internal Server Error
	ErrPersistence = errors.New("persistence failure")

	// ErrConfig indicates a missing signing secret or duration. Fatal at startup.
	ErrConfig = config.ErrConfig
)

// Unauthorized reasons, exposed to clients so they can pick renew vs re-login.
const (
	ReasonMissing = "missing"
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
)

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []domain.FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnauthorizedError is ErrUnauthorized with a reason and the underlying cause.
type UnauthorizedError struct {
	Reason string
	Cause  error
}

func (e *UnauthorizedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("unauthorized (%s)", e.Reason)
	}
	return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Cause)
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Cause}
}

func unauthorized(reason string, cause error) error {
	return &UnauthorizedError{Reason: reason, Cause: cause}
}

// unauthorizedFromToken classifies a token verification failure.
func unauthorizedFromToken(err error) error {
	if errors.Is(err, ErrTokenExpired) {
		return unauthorized(ReasonExpired, err)
	}
	return unauthorized(ReasonInvalid, err)
}

// UnauthorizedReason extracts the reason from an unauthorized error, or "".
func UnauthorizedReason(err error) string {
	var uerr *UnauthorizedError
	if errors.As(err, &uerr) {
		return uerr.Reason
	}
	return ""
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
