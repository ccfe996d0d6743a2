package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

const userColumns = `id, name, role, email, phone_number, password_hash, is_verified,
	verify_token, password_reset_token, is_deleted, last_login, created_at, updated_at`

// PgxUserRepository implements domain.UserRepository using pgx.
type PgxUserRepository struct {
	db DBTX
}

// NewUserRepository creates a new PgxUserRepository on a pool or a transaction.
func NewUserRepository(db DBTX) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

// GetByEmail returns the live user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND NOT is_deleted`
	return r.getOne(ctx, query, email)
}

// GetByID returns the live user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND NOT is_deleted`
	return r.getOne(ctx, query, id)
}

func (r *PgxUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Role, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.IsVerified,
		&u.VerifyToken, &u.PasswordResetToken, &u.IsDeleted, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// ExistsByEmail returns true when a live user with the given email exists.
func (r *PgxUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND NOT is_deleted)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// Create inserts a new user.
func (r *PgxUserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		u.ID, u.Name, u.Role, u.Email, u.PhoneNumber, u.PasswordHash, u.IsVerified,
		u.VerifyToken, u.PasswordResetToken, u.IsDeleted, u.LastLogin, u.CreatedAt, u.UpdatedAt,
	)
	return mapWriteError(err)
}

// UpdateLastLogin sets the last_login timestamp for the given user.
func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, at)
	return err
}

// SoftDelete flags the user as deleted.
func (r *PgxUserRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	query := `UPDATE users SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT is_deleted`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
