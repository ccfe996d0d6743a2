package v1

import (
	"fmt"
	"strings"
)

const bearerScheme = "Bearer"

// Decision is the outcome of gating one request.
//
// Requester is a best-effort identity on public routes, for personalization
// only. Identity is the verified identity on protected routes. At most one
// of them is set. A non-nil Err means the request must be rejected with 401.
type Decision struct {
	Public    bool
	Requester *TokenPayload
	Identity  *TokenPayload
	Err       error
}

// Gatekeeper classifies requests and checks their bearer tokens.
type Gatekeeper struct {
	routes *RouteClassifier
	tokens *TokenCodec
}

// NewGatekeeper wires a route table and a token codec together.
func NewGatekeeper(routes *RouteClassifier, tokens *TokenCodec) *Gatekeeper {
	return &Gatekeeper{routes: routes, tokens: tokens}
}

// Decide gates a request given its path, method and Authorization header.
// Public routes are never rejected.
func (g *Gatekeeper) Decide(path, method, authorization string) Decision {
	if g.routes.IsPublic(path, method) {
		d := Decision{Public: true}
		if token, ok := bearerToken(authorization); ok {
			if p, err := g.identify(token); err == nil {
				d.Requester = &p
			}
		}
		return d
	}

	if strings.TrimSpace(authorization) == "" {
		return Decision{Err: unauthorized(ReasonMissing, nil)}
	}
	token, ok := bearerToken(authorization)
	if !ok {
		return Decision{Err: unauthorized(ReasonInvalid, fmt.Errorf("%w: malformed authorization header", ErrTokenInvalid))}
	}

	p, err := g.identify(token)
	if err != nil {
		return Decision{Err: unauthorizedFromToken(err)}
	}
	return Decision{Identity: &p}
}

// identify verifies an access token and checks the subject shape.
func (g *Gatekeeper) identify(token string) (TokenPayload, error) {
	p, err := g.tokens.VerifyAccess(token)
	if err != nil {
		return TokenPayload{}, err
	}
	if !IsValidID(p.UserID) {
		return TokenPayload{}, fmt.Errorf("%w: malformed subject %q", ErrTokenInvalid, p.UserID)
	}
	return p, nil
}

// bearerToken extracts the token of a "Bearer <token>" header value.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
