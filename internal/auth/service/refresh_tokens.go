package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
)

// RefreshTokenStore issues and redeems opaque refresh tokens. Only the
// token fingerprint is persisted.
type RefreshTokenStore struct {
	Store store.Store
	TTL   time.Duration
	Now   func() time.Time
}

func (s *RefreshTokenStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// newOpaqueToken is 256 random bits followed by a ULID, which keeps tokens
// unique even if two random draws collided.
func newOpaqueToken(now time.Time) (string, error) {
	random, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	return random + "." + idx.NewAt(now).String(), nil
}

// Create issues a token for owner outside any transaction.
func (s *RefreshTokenStore) Create(ctx context.Context, owner string) (string, domain.RefreshToken, error) {
	return s.create(ctx, s.Store.RefreshTokens(), owner)
}

// CreateTx issues a token for owner as part of tx.
func (s *RefreshTokenStore) CreateTx(ctx context.Context, tx store.Tx, owner string) (string, domain.RefreshToken, error) {
	return s.create(ctx, tx.RefreshTokens(), owner)
}

func (s *RefreshTokenStore) create(ctx context.Context, repo store.RefreshTokens, owner string) (string, domain.RefreshToken, error) {
	now := s.now()

	token, err := newOpaqueToken(now)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	rec := domain.RefreshToken{
		TokenHash:     cryptox.FingerprintToken(token),
		OwnerUsername: owner,
		ExpiresAt:     now.Add(s.TTL),
		CreatedAt:     now,
	}
	if err := repo.CreateRefreshToken(ctx, rec); err != nil {
		return "", domain.RefreshToken{}, fmt.Errorf("create refresh token: %w", err)
	}
	return token, rec, nil
}

// Find returns the live record for token. An expired record is deleted on
// the spot and reported as ErrExpiredRefreshToken.
func (s *RefreshTokenStore) Find(ctx context.Context, token string) (domain.RefreshToken, error) {
	hash := cryptox.FingerprintToken(token)

	rec, err := s.Store.RefreshTokens().GetRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidRefreshToken
		}
		return domain.RefreshToken{}, err
	}

	if rec.Expired(s.now()) {
		if err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, hash); err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, err
		}
		return domain.RefreshToken{}, ErrExpiredRefreshToken
	}
	return rec, nil
}

// Delete removes the record for token. Unknown tokens are not an error.
func (s *RefreshTokenStore) Delete(ctx context.Context, token string) error {
	err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Consume deletes the record for token inside tx and returns it. Expiry is
// left to the caller so it can still commit the deletion.
func (s *RefreshTokenStore) Consume(ctx context.Context, tx store.Tx, token string) (domain.RefreshToken, error) {
	rec, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidRefreshToken
		}
		return domain.RefreshToken{}, err
	}
	return rec, nil
}
