package memory_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.NewStore() })
}

func TestTxIsolation(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Users().CreateUser(ctx, storetest.NewUser("alice", "alice@example.com", domain.RoleEmployee)))
	require.NoError(t, tx.Rollback())

	// Second rollback is a no-op, commit after finish is an error.
	require.NoError(t, tx.Rollback())
	require.Error(t, tx.Commit())

	ok, err := s.Users().ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, storetest.NewUser("alice", "alice@example.com", domain.RoleEmployee)))

	u, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	u.Roles[0] = domain.RoleAdmin

	again, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []domain.Role{domain.RoleEmployee}, again.Roles)
}

func TestPingAfterClose(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	require.Error(t, s.Ping(context.Background()))
}
