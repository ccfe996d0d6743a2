package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

const sessionColumns = `id, user_id, ip_address, user_agent, browser_name, browser_version,
	os_name, os_version, device_type, device_model, device_vendor, expires_at, is_deleted, created_at, updated_at`

// PgxSessionRepository implements domain.SessionRepository using pgx.
type PgxSessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new PgxSessionRepository on a pool or a transaction.
func NewSessionRepository(db DBTX) *PgxSessionRepository {
	return &PgxSessionRepository{db: db}
}

// Create inserts a new session.
func (r *PgxSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.IPAddress, s.UserAgent, s.Browser.Name, s.Browser.Version,
		s.OS.Name, s.OS.Version, s.Device.Type, s.Device.Model, s.Device.Vendor,
		s.ExpiresAt, s.IsDeleted, s.CreatedAt, s.UpdatedAt,
	)
	return mapWriteError(err)
}

// GetByID looks up a live session by id.
// Returns (nil, nil) when the session does not exist or was deleted.
func (r *PgxSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND NOT is_deleted`

	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return s, nil
}

// ListByUser returns the live sessions of a user, newest first.
func (r *PgxSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND NOT is_deleted ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

// Delete soft-deletes one session.
func (r *PgxSessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `UPDATE sessions SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT is_deleted`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByUser soft-deletes every live session of a user.
func (r *PgxSessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE sessions SET is_deleted = TRUE, updated_at = now() WHERE user_id = $1 AND NOT is_deleted`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.Browser.Name, &s.Browser.Version,
		&s.OS.Name, &s.OS.Version, &s.Device.Type, &s.Device.Model, &s.Device.Vendor,
		&s.ExpiresAt, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
