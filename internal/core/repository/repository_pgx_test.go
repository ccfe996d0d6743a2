package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

const testUserID = "65f1c0ffee0123456789abcd"

var userCols = []string{
	"id", "name", "role", "email", "phone_number", "password_hash", "is_verified",
	"verify_token", "password_reset_token", "is_deleted", "last_login", "created_at", "updated_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 AND NOT is_deleted`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			testUserID, "Ada", 1, "ada@example.com", (*string)(nil), "hash", true,
			"", "", false, (*time.Time)(nil), now, now,
		))

	u, err := repo.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, 1, u.Role)
	assert.Nil(t, u.PhoneNumber)
	assert.Nil(t, u.LastLogin)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	u, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnError(boom)

	_, err := repo.GetByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, boom)
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ada@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    error
		expected error
	}{
		{name: "success"},
		{name: "unique violation", dbErr: &pgconn.PgError{Code: "23505"}, expected: domain.ErrDuplicate},
		{name: "other error", dbErr: &pgconn.PgError{Code: "57014"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewUserRepository(mock)

			exp := mock.ExpectExec(`INSERT INTO users`).WithArgs(anyArgs(13)...)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := repo.Create(context.Background(), &domain.User{ID: testUserID, Email: "ada@example.com"})
			switch {
			case tt.dbErr == nil:
				assert.NoError(t, err)
			case tt.expected != nil:
				assert.ErrorIs(t, err, tt.expected)
			default:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrDuplicate)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SoftDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(`UPDATE users SET is_deleted = TRUE`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET is_deleted = TRUE`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.SoftDelete(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SoftDelete(context.Background(), testUserID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "user_id", "ip_address", "user_agent", "browser_name", "browser_version",
		"os_name", "os_version", "device_type", "device_model", "device_vendor",
		"expires_at", "is_deleted", "created_at", "updated_at",
	}

	mock.ExpectQuery(`SELECT .+ FROM sessions\s+WHERE user_id = \$1 AND NOT is_deleted ORDER BY created_at DESC`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("s2", testUserID, "10.0.0.2", "ua", "Chrome", "120", "Windows", "10", "desktop", "unknown", "Microsoft", now.Add(time.Hour), false, now, now).
			AddRow("s1", testUserID, "10.0.0.1", "ua", "Safari", "17", "iPhone OS", "17.0", "mobile", "iPhone", "Apple", now.Add(time.Hour), false, now.Add(-time.Minute), now))

	sessions, err := repo.ListByUser(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, "Apple", sessions[1].Device.Vendor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ListByUserEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM sessions`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	sessions, err := repo.ListByUser(context.Background(), testUserID)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock)

	mock.ExpectExec(`UPDATE sessions SET is_deleted = TRUE, updated_at = now\(\) WHERE user_id = \$1`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.DeleteByUser(context.Background(), testUserID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorLogRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewErrorLogRepository(mock)

	mock.ExpectExec(`INSERT INTO error_logs`).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &domain.ErrorLog{ID: testUserID, Code: "500", Message: "boom"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxStore_WithinTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		mock := newMock(t)
		store := NewPgxStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ada@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(anyArgs(13)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := store.WithinTx(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
			exists, err := repos.Users().ExistsByEmail(ctx, "ada@example.com")
			if err != nil || exists {
				return errors.New("unexpected")
			}
			return repos.Users().Create(ctx, &domain.User{ID: testUserID, Email: "ada@example.com"})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		mock := newMock(t)
		store := NewPgxStore(mock)
		failure := errors.New("abort")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(context.Background(), func(context.Context, domain.Repositories) error {
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		mock := newMock(t)
		store := NewPgxStore(mock)

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = store.WithinTx(context.Background(), func(context.Context, domain.Repositories) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		mock := newMock(t)
		store := NewPgxStore(mock)
		failure := errors.New("no connection")

		mock.ExpectBegin().WillReturnError(failure)

		called := false
		err := store.WithinTx(context.Background(), func(context.Context, domain.Repositories) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, failure)
		assert.False(t, called)
	})
}
