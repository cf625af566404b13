package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// SessionService implements login, registration, refresh rotation and
// logout. There is no server-side session object; state is the set of live
// refresh token records.
type SessionService struct {
	Store         store.Store
	Codec         *jwtx.Codec
	Authenticator *CredentialAuthenticator
	RefreshTokens *RefreshTokenStore
	Hasher        *cryptox.Hasher
	Metrics       *Metrics
	AccessTTL     time.Duration
	Now           func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login verifies credentials and issues an access token plus a fresh
// refresh token.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*domain.TokenPair, error) {
	u, err := s.Authenticator.Authenticate(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			s.Metrics.login(ctx, OutcomeFailure)
		} else {
			s.Metrics.login(ctx, OutcomeError)
		}
		return nil, err
	}

	access, err := s.Codec.IssueAccess(u.Username, domain.RoleNames(u.Roles), s.now(), s.AccessTTL)
	if err != nil {
		s.Metrics.login(ctx, OutcomeError)
		return nil, err
	}

	refresh, _, err := s.RefreshTokens.Create(ctx, u.Username)
	if err != nil {
		s.Metrics.login(ctx, OutcomeError)
		return nil, err
	}

	s.Metrics.login(ctx, OutcomeSuccess)
	slogx.FromContext(ctx).Info("login succeeded", slog.String("username", u.Username))

	return s.pair(u, access, refresh), nil
}

// Register creates an EMPLOYEE account. The username is checked before the
// email; a concurrent insert that wins the race is reported the same way.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email := domain.NormalizeEmail(in.Email)

	taken, err := s.Store.Users().ExistsByUsername(ctx, in.Username)
	if err != nil {
		s.Metrics.register(ctx, OutcomeError)
		return domain.User{}, err
	}
	if taken {
		s.Metrics.register(ctx, OutcomeFailure)
		l.Info("registration rejected", slog.String("reason", "duplicate_username"))
		return domain.User{}, ErrDuplicateUsername
	}

	taken, err = s.Store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		s.Metrics.register(ctx, OutcomeError)
		return domain.User{}, err
	}
	if taken {
		s.Metrics.register(ctx, OutcomeFailure)
		l.Info("registration rejected", slog.String("reason", "duplicate_email"))
		return domain.User{}, ErrDuplicateEmail
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.Metrics.register(ctx, OutcomeError)
		return domain.User{}, err
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleEmployee},
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			err = ErrDuplicateUsername
		case errors.Is(err, store.ErrEmailExists):
			err = ErrDuplicateEmail
		default:
			s.Metrics.register(ctx, OutcomeError)
			return domain.User{}, err
		}
		s.Metrics.register(ctx, OutcomeFailure)
		return domain.User{}, err
	}

	s.Metrics.register(ctx, OutcomeSuccess)
	l.Info("user registered", slog.String("username", u.Username), slog.String("user_id", u.ID))
	return u, nil
}

// Refresh redeems a refresh token for a new pair. The old record is deleted
// and the new one created in the same transaction, so a token can be
// redeemed at most once even under concurrent calls.
func (s *SessionService) Refresh(ctx context.Context, token string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	var (
		pair   *domain.TokenPair
		reject error // set when the consumed record must stay deleted
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := s.RefreshTokens.Consume(ctx, tx, token)
		if err != nil {
			return err
		}

		if rec.Expired(now) {
			reject = ErrExpiredRefreshToken
			return nil
		}

		u, err := tx.Users().GetUserByUsername(ctx, rec.OwnerUsername)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !u.Enabled) {
			reject = ErrInvalidRefreshToken
			return nil
		}
		if err != nil {
			return err
		}

		access, err := s.Codec.IssueAccess(u.Username, domain.RoleNames(u.Roles), now, s.AccessTTL)
		if err != nil {
			return err
		}

		refresh, _, err := s.RefreshTokens.CreateTx(ctx, tx, u.Username)
		if err != nil {
			return err
		}

		pair = s.pair(u, access, refresh)
		return nil
	})

	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		s.Metrics.refresh(ctx, OutcomeReplay)
		l.Warn("refresh rejected", slog.String("reason", "unknown_or_used"))
		return nil, err
	case err != nil:
		s.Metrics.refresh(ctx, OutcomeError)
		return nil, err
	case errors.Is(reject, ErrExpiredRefreshToken):
		s.Metrics.refresh(ctx, OutcomeExpired)
		l.Info("refresh rejected", slog.String("reason", "expired"))
		return nil, reject
	case reject != nil:
		s.Metrics.refresh(ctx, OutcomeReplay)
		l.Warn("refresh rejected", slog.String("reason", "owner_unavailable"))
		return nil, reject
	}

	s.Metrics.refresh(ctx, OutcomeSuccess)
	return pair, nil
}

// Logout revokes token if it belongs to p. Unknown tokens and tokens owned
// by someone else are ignored so the call is idempotent.
func (s *SessionService) Logout(ctx context.Context, p domain.Principal, token string) error {
	if token == "" {
		return nil
	}

	hash := cryptox.FingerprintToken(token)
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.RefreshTokens().GetRefreshToken(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if rec.OwnerUsername != p.Username {
			slogx.FromContext(ctx).Warn("logout with foreign refresh token",
				slog.String("username", p.Username))
			return nil
		}

		if err := tx.RefreshTokens().DeleteRefreshToken(ctx, hash); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})
}

func (s *SessionService) pair(u domain.User, access, refresh string) *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    s.AccessTTL,
		Username:     u.Username,
		Roles:        u.Roles,
	}
}
