package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/session-auth-service/internal/core/domain"
	"github.com/duynhne/session-auth-service/middleware"
)

// AuthService implements authentication business rules.
// It depends on the store interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	store     domain.Store
	tokens    *TokenCodec
	creds     *CredentialVerifier
	sessions  *SessionManager
	dummyHash string
	now       func() time.Time
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(store domain.Store, tokens *TokenCodec, creds *CredentialVerifier, sessions *SessionManager) (*AuthService, error) {
	// Compared against on unknown emails so both failure paths cost one bcrypt run.
	dummy, err := creds.HashPassword("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		creds:     creds,
		sessions:  sessions,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Tokens exposes the codec used by the service.
func (s *AuthService) Tokens() *TokenCodec { return s.tokens }

// Login handles user login business logic.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest, dc domain.DeviceContext) (*domain.TokenPair, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email := normalizeEmail(req.Email)
	if err := validationError(s.creds.ValidateLoginInput(email, req.Password)); err != nil {
		middleware.RecordAuthEvent("login", "validation_failed")
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("query user", err)
	}
	if user == nil {
		s.creds.VerifyPassword(req.Password, s.dummyHash)
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		middleware.RecordAuthEvent("login", "invalid_credentials")
		return nil, fmt.Errorf("authenticate user: %w", ErrInvalidCredentials)
	}

	if !s.creds.VerifyPassword(req.Password, user.PasswordHash) {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		middleware.RecordAuthEvent("login", "invalid_credentials")
		return nil, fmt.Errorf("authenticate user: %w", ErrInvalidCredentials)
	}

	session, err := s.sessions.CreateSession(ctx, s.store.Sessions(), SessionInput{
		UserID:    user.ID,
		IPAddress: dc.IPAddress,
		UserAgent: dc.UserAgent,
		Device:    ParseDevice(dc.UserAgent),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Best-effort, don't fail login.
	if updateErr := s.store.Users().UpdateLastLogin(ctx, user.ID, s.now().UTC()); updateErr != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", updateErr))
	}

	payload := TokenPayload{
		UserID:    user.ID,
		SessionID: session.ID,
		Role:      user.Role,
		Name:      user.Name,
		IssuedAt:  s.now(),
	}
	pair, err := s.issuePair(payload)
	if err != nil {
		span.RecordError(err)
		// The client never sees this session; drop it.
		if delErr := s.sessions.DeleteSession(ctx, s.store.Sessions(), session.ID); delErr != nil {
			span.RecordError(fmt.Errorf("revoke session: %w", delErr))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.String("session.id", session.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")
	middleware.RecordAuthEvent("login", "success")

	return pair, nil
}

func (s *AuthService) issuePair(p TokenPayload) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(p)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(p)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Signup registers a new user. The duplicate check and the insert run in
// one transaction; the store's unique index is the final backstop.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.signup", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if err := validationError(s.creds.ValidateSignupInput(name, email, req.Password)); err != nil {
		middleware.RecordAuthEvent("signup", "validation_failed")
		return nil, err
	}

	// Hash outside the transaction; it is CPU bound.
	passwordHash, err := s.creds.HashPassword(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           NewID(),
		Name:         name,
		Role:         0,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		exists, err := repos.Users().ExistsByEmail(ctx, email)
		if err != nil {
			return persistence("check existing user", err)
		}
		if exists {
			return fmt.Errorf("register user: %w", ErrUserExists)
		}
		if err := repos.Users().Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("register user: %w", ErrUserExists)
			}
			return persistence("insert user", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrUserExists) {
			middleware.RecordAuthEvent("signup", "conflict")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	span.AddEvent("user.registered")
	middleware.RecordAuthEvent("signup", "success")

	return user, nil
}

// RenewAccessToken mints a new access token from a refresh token. Role and
// name come from the current user record, not from the refresh token.
func (s *AuthService) RenewAccessToken(ctx context.Context, refreshToken string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.renew_access_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		middleware.RecordAuthEvent("renew", "missing")
		return "", unauthorized(ReasonMissing, nil)
	}

	p, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		span.RecordError(err)
		middleware.RecordAuthEvent("renew", "rejected")
		return "", unauthorizedFromToken(err)
	}

	user, err := s.store.Users().GetByID(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		return "", persistence("query user", err)
	}
	if user == nil {
		middleware.RecordAuthEvent("renew", "user_not_found")
		return "", unauthorized(ReasonInvalid, ErrUserNotFound)
	}

	if p.SessionID != "" {
		session, err := s.store.Sessions().GetByID(ctx, p.SessionID)
		if err != nil {
			span.RecordError(err)
			return "", persistence("query session", err)
		}
		if session == nil {
			middleware.RecordAuthEvent("renew", "session_revoked")
			return "", unauthorized(ReasonInvalid, ErrSessionNotFound)
		}
		if !s.sessions.Usable(session) {
			middleware.RecordAuthEvent("renew", "session_expired")
			return "", unauthorized(ReasonExpired, fmt.Errorf("session %s expired at %v", session.ID, session.ExpiresAt))
		}
	}

	access, err := s.tokens.IssueAccessToken(TokenPayload{
		UserID:    user.ID,
		SessionID: p.SessionID,
		Role:      user.Role,
		Name:      user.Name,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("issue access token: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	middleware.RecordAuthEvent("renew", "success")

	return access, nil
}

// Logout revokes the session the access token was issued for.
func (s *AuthService) Logout(ctx context.Context, identity TokenPayload) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", identity.UserID),
	))
	defer span.End()

	if identity.SessionID == "" {
		return fmt.Errorf("logout: %w", ErrSessionNotFound)
	}

	session, err := s.sessions.FindSession(ctx, s.store.Sessions(), identity.SessionID)
	if err != nil {
		return err
	}
	// Never revoke a session that belongs to somebody else.
	if session.UserID != identity.UserID {
		return fmt.Errorf("logout: %w", ErrSessionNotFound)
	}

	if err := s.sessions.DeleteSession(ctx, s.store.Sessions(), identity.SessionID); err != nil {
		span.RecordError(err)
		return err
	}
	middleware.RecordAuthEvent("logout", "success")
	return nil
}

// LogoutAll revokes every session of the requester.
func (s *AuthService) LogoutAll(ctx context.Context, identity TokenPayload) (int64, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.logout_all", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", identity.UserID),
	))
	defer span.End()

	n, err := s.sessions.DeleteSessionsForUser(ctx, s.store.Sessions(), identity.UserID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("sessions.revoked", n))
	middleware.RecordAuthEvent("logout_all", "success")
	return n, nil
}

// ListSessions returns the live sessions of the requester.
func (s *AuthService) ListSessions(ctx context.Context, identity TokenPayload) ([]domain.Session, error) {
	return s.sessions.FindSessionsForUser(ctx, s.store.Sessions(), identity.UserID)
}

// Me returns the requester's own user record.
func (s *AuthService) Me(ctx context.Context, identity TokenPayload) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, persistence("query user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("me %q: %w", identity.UserID, ErrUserNotFound)
	}
	return user, nil
}

// PublicProfile returns what anyone may see about a user. The optional
// requester only personalizes the answer.
func (s *AuthService) PublicProfile(ctx context.Context, userID string, requester *TokenPayload) (*domain.PublicProfile, error) {
	if !IsValidID(userID) {
		return nil, fmt.Errorf("profile %q: %w", userID, ErrUserNotFound)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, persistence("query user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("profile %q: %w", userID, ErrUserNotFound)
	}

	return &domain.PublicProfile{
		ID:     user.ID,
		Name:   user.Name,
		IsSelf: requester != nil && requester.UserID == user.ID,
	}, nil
}

// DeleteAccount soft-deletes the requester and revokes all their sessions atomically.
func (s *AuthService) DeleteAccount(ctx context.Context, identity TokenPayload) error {
	ctx, span := middleware.StartSpan(ctx, "auth.delete_account", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", identity.UserID),
	))
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		deleted, err := repos.Users().SoftDelete(ctx, identity.UserID)
		if err != nil {
			return persistence("delete user", err)
		}
		if !deleted {
			return fmt.Errorf("delete account %q: %w", identity.UserID, ErrUserNotFound)
		}
		_, err = s.sessions.DeleteSessionsForUser(ctx, repos.Sessions(), identity.UserID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	middleware.RecordAuthEvent("delete_account", "success")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
