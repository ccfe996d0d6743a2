package domain

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RenewRequest is the body of POST /renew-access-token.
type RenewRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// DeviceContext is the request provenance captured for a new session.
type DeviceContext struct {
	IPAddress string
	UserAgent string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message          string       `json:"message"`
	Reason           string       `json:"reason,omitempty"`
	ValidationErrors []FieldError `json:"validationErrors,omitempty"`
}

// MessageResponse is the body of a successful request without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccessTokenResponse is returned by login and renewal.
type AccessTokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsSelf bool   `json:"isSelf"`
}

// SessionsResponse lists the live sessions of the requester.
type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// RevokedResponse reports how many sessions were revoked.
type RevokedResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}
