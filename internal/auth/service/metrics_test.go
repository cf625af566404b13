package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestLoginMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := service.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	f := newMemoryFixture(t)
	f.svc.Metrics = m
	f.addUser(t, "alice", true, domain.RoleEmployee)
	ctx := context.Background()

	_, err = f.svc.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "wrong-password")
	require.Error(t, err)
	_, err = f.svc.Login(ctx, "alice", "wrong-password")
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "rollcall.auth.logins" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[outcome.AsString()] = dp.Value
			}
		}
	}

	require.Equal(t, int64(1), counts[service.OutcomeSuccess])
	require.Equal(t, int64(2), counts[service.OutcomeFailure])
}
