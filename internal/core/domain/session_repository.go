package domain

import (
	"context"
	"time"
)

// Browser is the parsed browser part of a user agent.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// OS is the parsed operating system part of a user agent.
type OS struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Device is the parsed hardware part of a user agent.
type Device struct {
	Type   string `json:"type"`
	Model  string `json:"model"`
	Vendor string `json:"vendor"`
}

// Session is one authenticated login instance with its network and device provenance.
// UserID is a weak reference; the session does not own the user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Browser   Browser   `json:"browser"`
	OS        OS        `json:"os"`
	Device    Device    `json:"device"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create inserts a new session. The ID and timestamps must already be set.
	Create(ctx context.Context, session *Session) error

	// GetByID returns the session with the given identifier, expired or not.
	// Returns (nil, nil) when the session does not exist or was deleted.
	GetByID(ctx context.Context, id string) (*Session, error)

	// ListByUser returns the live (not deleted) sessions of a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]Session, error)

	// Delete soft-deletes one session. Returns false when nothing matched.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByUser soft-deletes every session of a user and returns how many were revoked.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
