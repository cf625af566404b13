package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

// HousekeepingService periodically deletes expired refresh token records.
// Expired records are already rejected on access; this only bounds table
// growth.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *Metrics
	Interval time.Duration
	Now      func() time.Time
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *HousekeepingService) Run(ctx context.Context) error {
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
	defer s.Logger.Info("housekeeping service stopped")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep deletes every expired refresh token and returns how many went.
// Failures are logged, not returned; the next tick tries again.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, s.Now())
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		}
		return 0
	}

	s.Metrics.sweep(ctx, n)
	s.Logger.Debug("housekeeping sweep completed", "deleted", n)
	return n
}
