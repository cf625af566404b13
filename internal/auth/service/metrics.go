package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels recorded on the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExpired = "expired"
	OutcomeReplay  = "invalid"
	OutcomeError   = "error"
)

// Metrics counts auth operations by outcome. A nil *Metrics records nothing.
type Metrics struct {
	logins    metric.Int64Counter
	registers metric.Int64Counter
	refreshes metric.Int64Counter
	swept     metric.Int64Counter
}

// NewMetrics registers the auth instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	logins, err := meter.Int64Counter(
		"rollcall.auth.logins",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	registers, err := meter.Int64Counter(
		"rollcall.auth.registrations",
		metric.WithDescription("Registration attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	refreshes, err := meter.Int64Counter(
		"rollcall.auth.refreshes",
		metric.WithDescription("Refresh token redemptions by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	swept, err := meter.Int64Counter(
		"rollcall.auth.refresh_tokens_swept",
		metric.WithDescription("Expired refresh tokens removed by housekeeping"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{logins: logins, registers: registers, refreshes: refreshes, swept: swept}, nil
}

func (m *Metrics) login(ctx context.Context, outcome string) {
	if m != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) register(ctx context.Context, outcome string) {
	if m != nil {
		m.registers.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) refresh(ctx context.Context, outcome string) {
	if m != nil {
		m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) sweep(ctx context.Context, n int64) {
	if m != nil && n > 0 {
		m.swept.Add(ctx, n)
	}
}
