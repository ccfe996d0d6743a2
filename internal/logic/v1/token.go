package v1

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/duynhne/session-auth-service/config"
)

// PayloadVersion is the current token payload layout.
const PayloadVersion = 1

// TokenKind tells access tokens apart from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenPayload is the identity carried by a token. Every field except
// UserID is optional so older tokens keep decoding.
type TokenPayload struct {
	UserID    string
	SessionID string
	Role      int
	Name      string
	IssuedAt  time.Time
}

type tokenClaims struct {
	Version   int       `json:"v"`
	Kind      TokenKind `json:"typ"`
	SessionID string    `json:"sid,omitempty"`
	Role      int       `json:"role"`
	Name      string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets and lifetimes. A TokenCodec is immutable and safe for
// concurrent use.
type TokenCodec struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenCodec builds a codec from the auth configuration.
// It fails with ErrConfig when a secret or an expiration is missing or unparseable.
func NewTokenCodec(cfg config.AuthConfig) (*TokenCodec, error) {
	if cfg.AccessTokenSecret == "" {
		return nil, fmt.Errorf("%w: access token secret is not set", ErrConfig)
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("%w: refresh token secret is not set", ErrConfig)
	}

	accessTTL, err := parseTTL("access", cfg.AccessTokenExpiration)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := parseTTL("refresh", cfg.RefreshTokenExpiration)
	if err != nil {
		return nil, err
	}

	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func parseTTL(kind, value string) (time.Duration, error) {
	d, err := config.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s token expiration %q: %v", ErrConfig, kind, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s token expiration must be positive", ErrConfig, kind)
	}
	return d, nil
}

// AccessSecret returns the key that verifies access tokens.
func (c *TokenCodec) AccessSecret() []byte { return c.accessSecret }

// RefreshSecret returns the key that verifies refresh tokens.
func (c *TokenCodec) RefreshSecret() []byte { return c.refreshSecret }

// IssueAccessToken signs payload as a short-lived access token.
func (c *TokenCodec) IssueAccessToken(p TokenPayload) (string, error) {
	return c.issue(AccessToken, p, c.accessSecret, c.accessTTL)
}

// IssueRefreshToken signs payload as a long-lived refresh token.
func (c *TokenCodec) IssueRefreshToken(p TokenPayload) (string, error) {
	return c.issue(RefreshToken, p, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) issue(kind TokenKind, p TokenPayload, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 || ttl <= 0 {
		return "", fmt.Errorf("%w: %s token secret or expiration is not set", ErrConfig, kind)
	}

	now := c.now()
	issuedAt := p.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}

	claims := tokenClaims{
		Version:   PayloadVersion,
		Kind:      kind,
		SessionID: p.SessionID,
		Role:      p.Role,
		Name:      p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry of a token against secret and
// returns its payload. It fails with ErrTokenExpired past expiration and
// ErrTokenInvalid for anything else. It never renews.
func (c *TokenCodec) Verify(token string, secret []byte) (TokenPayload, error) {
	p, _, err := c.parse(token, secret)
	return p, err
}

// VerifyAccess verifies an access token and rejects any other kind.
func (c *TokenCodec) VerifyAccess(token string) (TokenPayload, error) {
	return c.verifyKind(token, AccessToken, c.accessSecret)
}

// VerifyRefresh verifies a refresh token and rejects any other kind.
func (c *TokenCodec) VerifyRefresh(token string) (TokenPayload, error) {
	return c.verifyKind(token, RefreshToken, c.refreshSecret)
}

func (c *TokenCodec) verifyKind(token string, want TokenKind, secret []byte) (TokenPayload, error) {
	p, kind, err := c.parse(token, secret)
	if err != nil {
		return TokenPayload{}, err
	}
	if kind != want {
		return TokenPayload{}, fmt.Errorf("%w: %s token used as %s token", ErrTokenInvalid, kind, want)
	}
	return p, nil
}

func (c *TokenCodec) parse(token string, secret []byte) (TokenPayload, TokenKind, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return TokenPayload{}, "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return TokenPayload{}, "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	p := TokenPayload{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Role:      claims.Role,
		Name:      claims.Name,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.UTC()
	}
	return p, claims.Kind, nil
}
