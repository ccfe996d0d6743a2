package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// DefaultSessionTTL is the lifetime of a session when none is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionInput is everything recorded about a new login.
type SessionInput struct {
	UserID    string
	IPAddress string
	UserAgent string
	Device    DeviceInfo
}

// SessionManager creates and revokes session records.
// Concurrent sessions per user are allowed.
type SessionManager struct {
	ttl time.Duration
	now func() time.Time
}

// NewSessionManager returns a manager whose sessions live for ttl.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{ttl: ttl, now: time.Now}
}

// CreateSession persists a new session expiring ttl from now.
func (m *SessionManager) CreateSession(ctx context.Context, repo domain.SessionRepository, in SessionInput) (*domain.Session, error) {
	now := m.now().UTC()
	s := &domain.Session{
		ID:        NewID(),
		UserID:    in.UserID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Browser:   in.Device.Browser,
		OS:        in.Device.OS,
		Device:    in.Device.Device,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, s); err != nil {
		return nil, persistence("create session", err)
	}
	return s, nil
}

// FindSession returns a live session, expired or not.
func (m *SessionManager) FindSession(ctx context.Context, repo domain.SessionRepository, sessionID string) (*domain.Session, error) {
	s, err := repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, persistence("find session", err)
	}
	if s == nil {
		return nil, fmt.Errorf("find session %q: %w", sessionID, ErrSessionNotFound)
	}
	return s, nil
}

// FindSessionsForUser lists the live sessions of a user.
func (m *SessionManager) FindSessionsForUser(ctx context.Context, repo domain.SessionRepository, userID string) ([]domain.Session, error) {
	sessions, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list sessions", err)
	}
	return sessions, nil
}

// DeleteSession revokes one session.
func (m *SessionManager) DeleteSession(ctx context.Context, repo domain.SessionRepository, sessionID string) error {
	ok, err := repo.Delete(ctx, sessionID)
	if err != nil {
		return persistence("delete session", err)
	}
	if !ok {
		return fmt.Errorf("delete session %q: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// DeleteSessionsForUser revokes every session of a user and returns how many were live.
func (m *SessionManager) DeleteSessionsForUser(ctx context.Context, repo domain.SessionRepository, userID string) (int64, error) {
	n, err := repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, persistence("delete sessions", err)
	}
	return n, nil
}

// Usable reports whether a session may still back a token renewal.
func (m *SessionManager) Usable(s *domain.Session) bool {
	return s != nil && !s.IsDeleted && !s.Expired(m.now())
}
