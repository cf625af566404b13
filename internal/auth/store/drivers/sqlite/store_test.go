package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestNestedTxRejected(t *testing.T) {
	s := newStore(t)

	tx, err := s.Tx(t.Context())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Tx(t.Context())
	require.Error(t, err)
}
