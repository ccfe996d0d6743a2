package repository

import (
	"context"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// PgxErrorLogRepository implements domain.ErrorLogRepository using pgx.
type PgxErrorLogRepository struct {
	db DBTX
}

// NewErrorLogRepository creates a new PgxErrorLogRepository.
func NewErrorLogRepository(db DBTX) *PgxErrorLogRepository {
	return &PgxErrorLogRepository{db: db}
}

// Create inserts an error log entry.
func (r *PgxErrorLogRepository) Create(ctx context.Context, e *domain.ErrorLog) error {
	query := `INSERT INTO error_logs (id, error_code, message, file, source, stack_trace, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query, e.ID, e.Code, e.Message, e.File, e.Source, e.StackTrace, e.CreatedAt)
	return err
}
