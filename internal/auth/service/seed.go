package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
)

// SeedEmployeeCount is how many employeeN accounts Seed creates.
const SeedEmployeeCount = 5

// SeedUsers creates admin and employee1..employeeN with password, skipping
// any that already exist. Safe to run on every start; an empty store skips
// the per-user lookups.
func SeedUsers(ctx context.Context, s store.Store, hasher *cryptox.Hasher, password string, logger *slog.Logger) error {
	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	type seed struct {
		username string
		role     domain.Role
	}
	seeds := []seed{{"admin", domain.RoleAdmin}}
	for i := 1; i <= SeedEmployeeCount; i++ {
		seeds = append(seeds, seed{fmt.Sprintf("employee%d", i), domain.RoleEmployee})
	}

	fresh, err := s.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("seed: check store: %w", err)
	}

	created := 0
	for _, sd := range seeds {
		if !fresh {
			exists, err := s.Users().ExistsByUsername(ctx, sd.username)
			if err != nil {
				return fmt.Errorf("seed: check %s: %w", sd.username, err)
			}
			if exists {
				logger.Debug("seed user already exists, skipping", slog.String("username", sd.username))
				continue
			}
		}

		now := time.Now().UTC()
		u := domain.User{
			ID:           idx.NewAt(now).String(),
			Username:     sd.username,
			Email:        sd.username + "@example.com",
			PasswordHash: hash,
			Roles:        []domain.Role{sd.role},
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Users().CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed: create %s: %w", sd.username, err)
		}
		created++
		logger.Info("created seed user", slog.String("username", sd.username), slog.String("role", sd.role.String()))
	}

	logger.Info("seed complete", slog.Bool("fresh_store", fresh), slog.Int("created", created))
	return nil
}
