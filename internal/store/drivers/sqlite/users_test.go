package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quokkahq/tokenforge/internal/domain"
	"github.com/quokkahq/tokenforge/internal/store"
)

func TestUsersCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	userID, err := s.Users().Create(ctx, domain.User{
		Name:         "Alice Example",
		Email:        "alice@example.com",
		Login:        "alice",
		PasswordHash: "hash",
		Active:       true,
	})
	require.NoError(t, err)

	roleID, err := s.Users().CreateRole(ctx, domain.Role{Name: domain.RoleUser, Description: "standard user"})
	require.NoError(t, err)
	adminID, err := s.Users().CreateRole(ctx, domain.Role{Name: domain.RoleAdmin, Description: "administrator"})
	require.NoError(t, err)

	require.NoError(t, s.Users().AssignRole(ctx, userID, roleID))
	require.NoError(t, s.Users().AssignRole(ctx, userID, adminID))

	t.Run("by login with roles", func(t *testing.T) {
		got, err := s.Users().GetByLogin(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, userID, got.ID)
		require.Equal(t, "alice@example.com", got.Email)
		require.True(t, got.Active)
		require.Equal(t, []string{domain.RoleUser, domain.RoleAdmin}, got.RoleNames())
	})

	t.Run("by id", func(t *testing.T) {
		got, err := s.Users().GetByID(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, "alice", got.Login)
	})

	t.Run("unknown login maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetByLogin(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUsersInactiveHiddenFromLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	userID, err := s.Users().Create(ctx, domain.User{
		Name:         "Disabled User",
		Email:        "disabled@example.com",
		Login:        "disabled",
		PasswordHash: "hash",
		Active:       false,
	})
	require.NoError(t, err)

	_, err = s.Users().GetByLogin(ctx, "disabled")
	require.ErrorIs(t, err, store.ErrNotFound, "login lookup must not see disabled accounts")

	got, err := s.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.False(t, got.Active, "id lookup still returns the row for refresh checks")
}

func TestUsersAssignRoleIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	userID, err := s.Users().Create(ctx, domain.User{
		Name: "Alice", Email: "alice@example.com", Login: "alice",
		PasswordHash: "hash", Active: true,
	})
	require.NoError(t, err)

	roleID, err := s.Users().CreateRole(ctx, domain.Role{Name: domain.RoleUser})
	require.NoError(t, err)

	require.NoError(t, s.Users().AssignRole(ctx, userID, roleID))
	require.NoError(t, s.Users().AssignRole(ctx, userID, roleID))

	got, err := s.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got.Roles, 1)
}
