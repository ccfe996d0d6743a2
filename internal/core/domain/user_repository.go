package domain

import (
	"context"
	"time"
)

// User represents a user record returned from the store.
// It includes the password hash so the Logic layer can verify credentials.
type User struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Role               int        `json:"role"`
	Email              string     `json:"email"`
	PhoneNumber        *string    `json:"phoneNumber,omitempty"`
	PasswordHash       string     `json:"-"`
	IsVerified         bool       `json:"isVerified"`
	VerifyToken        string     `json:"-"`
	PasswordResetToken string     `json:"-"`
	IsDeleted          bool       `json:"-"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or pgx directly.
// Soft-deleted users are invisible to every lookup.
type UserRepository interface {
	// GetByEmail returns the user matching the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user with the given identifier.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id string) (*User, error)

	// ExistsByEmail returns true when a user with the given email already exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new user. The ID and timestamps must already be set.
	// Returns ErrDuplicate when the email or phone number is taken.
	Create(ctx context.Context, user *User) error

	// UpdateLastLogin sets the last_login timestamp for the given user.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// SoftDelete flags the user as deleted. Returns false when nothing changed.
	SoftDelete(ctx context.Context, id string) (bool, error)
}
