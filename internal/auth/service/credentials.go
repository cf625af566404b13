package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// CredentialAuthenticator checks an identifier and password against the
// stored bcrypt hash.
type CredentialAuthenticator struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// Authenticate resolves identifier as a username or an email and verifies
// password. Unknown user, wrong password and disabled account are all
// ErrBadCredentials.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, identifier, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := a.Store.Users().FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.Hasher.VerifyDummy(password)
			l.Info("login rejected", slog.String("reason", "unknown_user"))
			return domain.User{}, ErrBadCredentials
		}
		return domain.User{}, err
	}

	if err := a.Hasher.Verify(password, u.PasswordHash); err != nil {
		l.Info("login rejected", slog.String("reason", "bad_password"), slog.String("username", u.Username))
		return domain.User{}, ErrBadCredentials
	}

	if !u.Enabled {
		l.Info("login rejected", slog.String("reason", "disabled"), slog.String("username", u.Username))
		return domain.User{}, ErrBadCredentials
	}

	return u, nil
}
