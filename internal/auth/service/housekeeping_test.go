package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	f := newMemoryFixture(t)
	f.addUser(t, "alice", true, domain.RoleEmployee)
	ctx := context.Background()

	_, _, err := f.svc.RefreshTokens.Create(ctx, "alice")
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	_, _, err = f.svc.RefreshTokens.Create(ctx, "alice")
	require.NoError(t, err)

	hk := service.NewHousekeepingService(f.store, slogx.Discard(), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Now = func() time.Time { return f.clock.Now().Add(6*24*time.Hour + time.Second) }
	require.EqualValues(t, 1, hk.Sweep(ctx))
	require.EqualValues(t, 0, hk.Sweep(ctx))
	require.EqualValues(t, 1, liveTokens(t, f.store))
}

func TestHousekeepingRunStopsOnCancel(t *testing.T) {
	f := newMemoryFixture(t)
	hk := service.NewHousekeepingService(f.store, slogx.Discard(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hk.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("housekeeping did not stop")
	}
}
