package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUsernameExists and ErrEmailExists tell the caller which unique
	// constraint an insert hit. Both match ErrAlreadyExists.
	ErrUsernameExists = fmt.Errorf("%w: username", ErrAlreadyExists)
	ErrEmailExists    = fmt.Errorf("%w: email", ErrAlreadyExists)
)

// Store is the root data access interface. Concrete drivers (sqlite,
// memory) implement it. Repositories hang off the store so a Tx can hand out
// the same repositories bound to the transaction, which keeps people from
// accidentally nesting transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction. A nil return commits, anything else
	// rolls back. Prefer it over Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// FindByUsernameOrEmail returns the user whose username or email equals
	// identifier. A username match wins over an email match.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (domain.User, error)

	// GetUserByUsername is used to reload the owner during refresh.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CreateUser inserts a user with its roles (id is provided by app via
	// ULID). Unique violations come back as ErrUsernameExists or
	// ErrEmailExists.
	CreateUser(ctx context.Context, u domain.User) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshToken returns the record with the given fingerprint.
	GetRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes a record. Deleting a missing record is
	// ErrNotFound.
	DeleteRefreshToken(ctx context.Context, hash string) error

	// ConsumeRefreshToken deletes the record and returns what was deleted in
	// one step. Of two concurrent calls for the same hash only one gets the
	// record; the other gets ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteExpiredRefreshTokens removes every record expiring at or before
	// now and reports how many went.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
