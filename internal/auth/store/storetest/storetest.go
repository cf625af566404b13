// Package storetest is a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated store.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("UserConflicts", func(t *testing.T) { testUserConflicts(t, newStore(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("ConsumeOnce", func(t *testing.T) { testConsumeOnce(t, newStore(t)) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, newStore(t)) })
	t.Run("WithTxRollback", func(t *testing.T) { testWithTxRollback(t, newStore(t)) })
}

// NewUser builds a user with a fresh ID.
func NewUser(username, email string, roles ...domain.Role) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$not-a-real-hash",
		Roles:        roles,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice := NewUser("alice", "alice@example.com", domain.RoleAdmin, domain.RoleEmployee)
	require.NoError(t, s.Users().CreateUser(ctx, alice))

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, alice.Email, got.Email)
	require.Equal(t, alice.PasswordHash, got.PasswordHash)
	require.True(t, got.Enabled)
	require.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleEmployee}, got.Roles)
	require.True(t, alice.CreatedAt.Equal(got.CreatedAt))

	byEmail, err := s.Users().FindByUsernameOrEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byEmail.ID)

	byEmail, err = s.Users().FindByUsernameOrEmail(ctx, " Alice@Example.COM")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byEmail.ID)

	ok, err := s.Users().ExistsByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Users().FindByUsernameOrEmail(ctx, "Alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	byName, err := s.Users().FindByUsernameOrEmail(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byName.ID)

	_, err = s.Users().FindByUsernameOrEmail(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	ok, err = s.Users().ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Users().ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	// A username that equals someone else's email resolves to the username.
	tricky := NewUser("alice@example.com", "other@example.com", domain.RoleEmployee)
	require.NoError(t, s.Users().CreateUser(ctx, tricky))

	got, err = s.Users().FindByUsernameOrEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, tricky.ID, got.ID)
}

func testUserConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee)))

	err := s.Users().CreateUser(ctx, NewUser("alice", "new@example.com", domain.RoleEmployee))
	require.ErrorIs(t, err, store.ErrUsernameExists)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.Users().CreateUser(ctx, NewUser("bob", "alice@example.com", domain.RoleEmployee))
	require.ErrorIs(t, err, store.ErrEmailExists)

	// A failed insert leaves nothing behind.
	ok, err := s.Users().ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	require.False(t, ok)

	err = s.Users().CreateUser(ctx, NewUser("carol", "carol@example.com"))
	require.Error(t, err, "a user needs at least one role")
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee)))

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := domain.RefreshToken{
		TokenHash:     "hash-1",
		OwnerUsername: "alice",
		ExpiresAt:     now.Add(time.Hour),
		CreatedAt:     now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	err := s.RefreshTokens().CreateRefreshToken(ctx, rec)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.RefreshTokens().GetRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.OwnerUsername)
	require.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.RefreshTokens().DeleteRefreshToken(ctx, "hash-1"))
	require.ErrorIs(t, s.RefreshTokens().DeleteRefreshToken(ctx, "hash-1"), store.ErrNotFound)

	_, err = s.RefreshTokens().GetRefreshToken(ctx, "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee)))

	now := time.Now().UTC()
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		TokenHash:     "hash-c",
		OwnerUsername: "alice",
		ExpiresAt:     now.Add(time.Hour),
		CreatedAt:     now,
	}))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				_, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, "hash-c")
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, notFound)
}

func testDeleteExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee)))

	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)} {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			TokenHash:     string(rune('a' + i)),
			OwnerUsername: "alice",
			ExpiresAt:     exp,
			CreatedAt:     now,
		}))
	}

	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = s.RefreshTokens().GetRefreshToken(ctx, "c")
	require.NoError(t, err)
}

func testWithTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee)))

		ok, err := tx.Users().ExistsByUsername(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok, "writes are visible inside the transaction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := s.Users().ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, NewUser("alice", "alice@example.com", domain.RoleEmployee))
	}))

	ok, err = s.Users().ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
}
