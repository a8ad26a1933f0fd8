package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetchbot/internal/repository"
	"fetchbot/internal/repository/sqlite"
)

func newUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newUserRepo(t), "secret")

	user, err := svc.Register(ctx, "alice", "password123", "secret")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newUserRepo(t), "secret")

	_, err := svc.Register(ctx, "", "password123", "secret")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "alice", "short", "secret")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "alice", "password123", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRegistrationPassword)

	_, err = svc.Register(ctx, "alice", "password123", "secret")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "otherpassword", "secret")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestTouchUpdatesLastSeen(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo(t)
	svc := NewUserService(repo, "secret")

	user, err := svc.Register(ctx, "alice", "password123", "secret")
	require.NoError(t, err)

	before, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, before.LastSeenAt)

	require.NoError(t, svc.Touch(ctx, user.ID))

	after, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastSeenAt)
}
