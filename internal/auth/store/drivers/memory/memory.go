// Package memory is an in-process store driver. Data lives for the life of
// the process; it backs tests and AUTH_STORAGE=memory.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

var errTxDone = errors.New("memory: transaction already finished")

type state struct {
	users  map[string]domain.User // keyed by username
	tokens map[string]domain.RefreshToken
}

func newState() *state {
	return &state{
		users:  make(map[string]domain.User),
		tokens: make(map[string]domain.RefreshToken),
	}
}

func (s *state) clone() *state {
	return &state{users: maps.Clone(s.users), tokens: maps.Clone(s.tokens)}
}

// Store guards a single state. Transactions hold mu until they finish, so
// they run one at a time, and work on a copy that replaces the state on
// commit.
type Store struct {
	mu     sync.Mutex
	data   *state
	closed bool
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("memory: store closed")
	}
	return ctx.Err()
}

// view runs fn against the live state under the lock.
func (s *Store) view(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Users() store.Users                 { return usersRepo{run: s.view} }
func (s *Store) RefreshTokens() store.RefreshTokens { return tokensRepo{run: s.view} }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{parent: s, work: s.data.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()

	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

type tx struct {
	parent *Store
	work   *state
	done   bool
}

func (t *tx) run(fn func(*state) error) error {
	if t.done {
		return errTxDone
	}
	return fn(t.work)
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.parent.data = t.work
	t.parent.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

func (t *tx) Users() store.Users                 { return usersRepo{run: t.run} }
func (t *tx) RefreshTokens() store.RefreshTokens { return tokensRepo{run: t.run} }
func (t *tx) ApplyMigrations() error             { return nil }
func (t *tx) Close() error                       { return nil }
func (t *tx) Ping(context.Context) error         { return nil }

func (t *tx) Tx(context.Context) (store.Tx, error) { return nil, errTxDone }

func (t *tx) WithTx(context.Context, func(store.Tx) error) error { return errTxDone }

type usersRepo struct {
	run func(func(*state) error) error
}

func (r usersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (domain.User, error) {
	var out domain.User
	err := r.run(func(s *state) error {
		if u, ok := s.users[identifier]; ok {
			out = u
			return nil
		}
		email := domain.NormalizeEmail(identifier)
		for _, u := range s.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return store.ErrNotFound
	})
	return copyUser(out), err
}

func (r usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var out domain.User
	err := r.run(func(s *state) error {
		u, ok := s.users[username]
		if !ok {
			return store.ErrNotFound
		}
		out = u
		return nil
	})
	return copyUser(out), err
}

func (r usersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var found bool
	err := r.run(func(s *state) error {
		_, found = s.users[username]
		return nil
	})
	return found, err
}

func (r usersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var found bool
	err := r.run(func(s *state) error {
		found = emailTaken(s, domain.NormalizeEmail(email))
		return nil
	})
	return found, err
}

func (r usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if len(u.Roles) == 0 {
		return errors.New("memory: user has no roles")
	}
	return r.run(func(s *state) error {
		if _, ok := s.users[u.Username]; ok {
			return store.ErrUsernameExists
		}
		if emailTaken(s, u.Email) {
			return store.ErrEmailExists
		}
		u = copyUser(u)
		u.Roles = domain.ParseRoles(domain.RoleNames(u.Roles))
		s.users[u.Username] = u
		return nil
	})
}

func (r usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var empty bool
	err := r.run(func(s *state) error {
		empty = len(s.users) == 0
		return nil
	})
	return empty, err
}

func emailTaken(s *state, email string) bool {
	for _, u := range s.users {
		if u.Email == email {
			return true
		}
	}
	return false
}

func copyUser(u domain.User) domain.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

type tokensRepo struct {
	run func(func(*state) error) error
}

func (r tokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	return r.run(func(s *state) error {
		if _, ok := s.tokens[t.TokenHash]; ok {
			return store.ErrAlreadyExists
		}
		if _, ok := s.users[t.OwnerUsername]; !ok {
			return store.ErrNotFound
		}
		s.tokens[t.TokenHash] = t
		return nil
	})
}

func (r tokensRepo) GetRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var out domain.RefreshToken
	err := r.run(func(s *state) error {
		t, ok := s.tokens[hash]
		if !ok {
			return store.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r tokensRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	return r.run(func(s *state) error {
		if _, ok := s.tokens[hash]; !ok {
			return store.ErrNotFound
		}
		delete(s.tokens, hash)
		return nil
	})
}

func (r tokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var out domain.RefreshToken
	err := r.run(func(s *state) error {
		t, ok := s.tokens[hash]
		if !ok {
			return store.ErrNotFound
		}
		delete(s.tokens, hash)
		out = t
		return nil
	})
	return out, err
}

func (r tokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.run(func(s *state) error {
		for hash, t := range s.tokens {
			if t.Expired(now) {
				delete(s.tokens, hash)
				n++
			}
		}
		return nil
	})
	return n, err
}
