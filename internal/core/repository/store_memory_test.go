package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()
	phone := "+15550100"

	require.NoError(t, users.Create(ctx, &domain.User{ID: "u1", Email: "ada@example.com", PhoneNumber: &phone}))

	err := users.Create(ctx, &domain.User{ID: "u2", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	other := phone
	err = users.Create(ctx, &domain.User{ID: "u3", Email: "bob@example.com", PhoneNumber: &other})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	u, err := users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, users.UpdateLastLogin(ctx, "u1", at))
	u, err = users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	assert.Equal(t, at, *u.LastLogin)

	ok, err := users.SoftDelete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.SoftDelete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err = users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, u)
	exists, err := users.ExistsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// A deleted account frees its email.
	require.NoError(t, users.Create(ctx, &domain.User{ID: "u4", Email: "ada@example.com"}))
	assert.Equal(t, 2, store.UserCount())
}

func TestMemoryStore_WithinTxRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	failure := errors.New("abort")

	err := store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Users().Create(ctx, &domain.User{ID: "u1", Email: "ada@example.com"}); err != nil {
			return err
		}
		if err := repos.Sessions().Create(ctx, &domain.Session{ID: "s1", UserID: "u1"}); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 0, store.UserCount())

	s, err := store.Sessions().GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			_ = repos.Users().Create(ctx, &domain.User{ID: "u2", Email: "bob@example.com"})
			panic("boom")
		})
	})
	assert.Equal(t, 0, store.UserCount())

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Users().Create(ctx, &domain.User{ID: "u3", Email: "carol@example.com"})
	}))
	assert.Equal(t, 1, store.UserCount())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()

	_, err := store.Users().GetByID(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	err = store.WithinTx(ctx, func(context.Context, domain.Repositories) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sessions := store.Sessions()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, sessions.Create(ctx, &domain.Session{ID: id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	assert.ErrorIs(t, sessions.Create(ctx, &domain.Session{ID: "s1"}), domain.ErrDuplicate)

	list, err := sessions.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "s3", list[0].ID)

	ok, err := sessions.Delete(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := sessions.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err = sessions.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMemoryStore_ErrorLogs(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.ErrorLogs().Create(context.Background(), &domain.ErrorLog{ID: "e1", Code: "500", Message: "boom"}))

	entries := store.ErrorLogEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Message)
}
