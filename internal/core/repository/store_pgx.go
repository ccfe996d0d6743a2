package repository

import (
	"context"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// PgxStore implements domain.Store on top of a pgx pool.
type PgxStore struct {
	pool Pool
}

// NewPgxStore creates a store backed by the given pool.
func NewPgxStore(pool Pool) *PgxStore {
	return &PgxStore{pool: pool}
}

func (s *PgxStore) Users() domain.UserRepository { return NewUserRepository(s.pool) }

func (s *PgxStore) Sessions() domain.SessionRepository { return NewSessionRepository(s.pool) }

func (s *PgxStore) ErrorLogs() domain.ErrorLogRepository { return NewErrorLogRepository(s.pool) }

// WithinTx runs fn inside one database transaction.
func (s *PgxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return WithTx(ctx, s.pool, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, txRepositories{tx: tx})
	})
}

type txRepositories struct {
	tx DBTX
}

func (r txRepositories) Users() domain.UserRepository { return NewUserRepository(r.tx) }

func (r txRepositories) Sessions() domain.SessionRepository { return NewSessionRepository(r.tx) }
