package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "rentboard/internal/domain/auth"
	domainuser "rentboard/internal/domain/user"
)

func TestUserRepository_EmailIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.Save(ctx, &domainuser.User{ID: "u1", Email: "Ana@Example.com", Name: "Ana"}))
	assert.ErrorIs(t, repo.Save(ctx, &domainuser.User{ID: "u2", Email: "ana@example.com"}), domainuser.ErrEmailAlreadyUsed)

	u, err := repo.ByEmail(ctx, " ANA@example.com ")
	require.NoError(t, err)
	u.Name = "changed outside"
	stored, err := repo.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Name)

	stored.Email = "ana@novi.rs"
	require.NoError(t, repo.Save(ctx, stored))
	_, err = repo.ByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
	require.NoError(t, repo.Save(ctx, &domainuser.User{ID: "u2", Email: "ana@example.com"}))
}

func TestSessionStore_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for token, user := range map[domainauth.Token]domainuser.ID{"t1": "u1", "t2": "u1", "t3": "u2"} {
		require.NoError(t, store.Save(ctx, &domainauth.Session{Token: token, UserID: user, ExpiresAt: past}))
	}

	s, err := store.Get(ctx, "t1")
	require.NoError(t, err, "expiry is decided by the auth service")
	assert.Equal(t, domainuser.ID("u1"), s.UserID)

	require.NoError(t, store.DeleteByUser(ctx, "u1"))
	_, err = store.Get(ctx, "t2")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	_, err = store.Get(ctx, "t3")
	assert.NoError(t, err)
	assert.ErrorIs(t, store.Save(ctx, &domainauth.Session{}), domainauth.ErrTokenRequired)
}
