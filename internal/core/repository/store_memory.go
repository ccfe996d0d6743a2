package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// MemoryStore is an in-process domain.Store used for local runs and tests.
// Transactions hold the store lock for their whole duration and restore a
// snapshot when the unit of work fails, so they are serializable.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	sessions  map[string]domain.Session
	errorLogs []domain.ErrorLog
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		sessions: make(map[string]domain.Session),
	}
}

func (s *MemoryStore) Users() domain.UserRepository { return &memoryUsers{s: s} }

func (s *MemoryStore) Sessions() domain.SessionRepository { return &memorySessions{s: s} }

func (s *MemoryStore) ErrorLogs() domain.ErrorLogRepository { return &memoryErrorLogs{s: s} }

// WithinTx runs fn while holding the store lock and rolls back on error or panic.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := maps.Clone(s.users)
	sessions := maps.Clone(s.sessions)

	defer func() {
		if p := recover(); p != nil {
			s.users, s.sessions = users, sessions
			panic(p)
		}
		if err != nil {
			s.users, s.sessions = users, sessions
		}
	}()

	return fn(ctx, memoryTx{s: s})
}

// UserCount returns the number of stored users, deleted ones included.
func (s *MemoryStore) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// SetRole changes the privilege level of a user.
func (s *MemoryStore) SetRole(id string, role int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return true
}

// ErrorLogEntries returns a copy of the recorded error logs.
func (s *MemoryStore) ErrorLogEntries() []domain.ErrorLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.errorLogs)
}

// do runs f under the store lock unless the caller already holds it.
func (s *MemoryStore) do(ctx context.Context, held bool, f func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !held {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return f()
}

type memoryTx struct {
	s *MemoryStore
}

func (t memoryTx) Users() domain.UserRepository { return &memoryUsers{s: t.s, held: true} }

func (t memoryTx) Sessions() domain.SessionRepository { return &memorySessions{s: t.s, held: true} }

type memoryUsers struct {
	s    *MemoryStore
	held bool
}

func (r *memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, r.held, func() error {
		for _, u := range r.s.users {
			if !u.IsDeleted && strings.EqualFold(u.Email, email) {
				found = &u
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, r.held, func() error {
		if u, ok := r.s.users[id]; ok && !u.IsDeleted {
			found = &u
		}
		return nil
	})
	return found, err
}

func (r *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

func (r *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	return r.s.do(ctx, r.held, func() error {
		if _, ok := r.s.users[user.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, u := range r.s.users {
			if u.IsDeleted {
				continue
			}
			if strings.EqualFold(u.Email, user.Email) {
				return domain.ErrDuplicate
			}
			if u.PhoneNumber != nil && user.PhoneNumber != nil && *u.PhoneNumber == *user.PhoneNumber {
				return domain.ErrDuplicate
			}
		}
		r.s.users[user.ID] = *user
		return nil
	})
}

func (r *memoryUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.s.do(ctx, r.held, func() error {
		if u, ok := r.s.users[id]; ok {
			u.LastLogin = &at
			u.UpdatedAt = at
			r.s.users[id] = u
		}
		return nil
	})
}

func (r *memoryUsers) SoftDelete(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := r.s.do(ctx, r.held, func() error {
		if u, ok := r.s.users[id]; ok && !u.IsDeleted {
			u.IsDeleted = true
			u.UpdatedAt = time.Now().UTC()
			r.s.users[id] = u
			changed = true
		}
		return nil
	})
	return changed, err
}

type memorySessions struct {
	s    *MemoryStore
	held bool
}

func (r *memorySessions) Create(ctx context.Context, session *domain.Session) error {
	return r.s.do(ctx, r.held, func() error {
		if _, ok := r.s.sessions[session.ID]; ok {
			return domain.ErrDuplicate
		}
		r.s.sessions[session.ID] = *session
		return nil
	})
}

func (r *memorySessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var found *domain.Session
	err := r.s.do(ctx, r.held, func() error {
		if s, ok := r.s.sessions[id]; ok && !s.IsDeleted {
			found = &s
		}
		return nil
	})
	return found, err
}

func (r *memorySessions) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0)
	err := r.s.do(ctx, r.held, func() error {
		for _, s := range r.s.sessions {
			if s.UserID == userID && !s.IsDeleted {
				sessions = append(sessions, s)
			}
		}
		return nil
	})
	slices.SortFunc(sessions, func(a, b domain.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sessions, err
}

func (r *memorySessions) Delete(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := r.s.do(ctx, r.held, func() error {
		if s, ok := r.s.sessions[id]; ok && !s.IsDeleted {
			s.IsDeleted = true
			s.UpdatedAt = time.Now().UTC()
			r.s.sessions[id] = s
			changed = true
		}
		return nil
	})
	return changed, err
}

func (r *memorySessions) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.do(ctx, r.held, func() error {
		now := time.Now().UTC()
		for id, s := range r.s.sessions {
			if s.UserID == userID && !s.IsDeleted {
				s.IsDeleted = true
				s.UpdatedAt = now
				r.s.sessions[id] = s
				n++
			}
		}
		return nil
	})
	return n, err
}

type memoryErrorLogs struct {
	s *MemoryStore
}

func (r *memoryErrorLogs) Create(ctx context.Context, entry *domain.ErrorLog) error {
	return r.s.do(ctx, false, func() error {
		r.s.errorLogs = append(r.s.errorLogs, *entry)
		return nil
	})
}
