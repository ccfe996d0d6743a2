package domain

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by repositories when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

// Repositories groups the repositories that share one store handle,
// either the connection pool or an open transaction.
type Repositories interface {
	Users() UserRepository
	Sessions() SessionRepository
}

// Transactor runs a unit of work atomically. Every repository obtained from
// the Repositories passed to fn participates in the same transaction; the
// transaction is rolled back when fn returns an error or panics.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the full credential store used by the service.
type Store interface {
	Repositories
	Transactor
	ErrorLogs() ErrorLogRepository
}
