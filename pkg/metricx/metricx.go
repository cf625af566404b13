// Package metricx builds the OpenTelemetry meter provider for a service and
// exposes it for scraping.
package metricx

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Supported exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterNone       = "none"
)

// Provider bundles a meter provider with its scrape handler.
type Provider struct {
	metric.MeterProvider

	handler  http.Handler
	shutdown func(context.Context) error
}

// New creates a provider for the named exporter. Prometheus metrics are
// registered on a private registry so several providers can coexist in
// one process (tests do this).
func New(exporter string) (*Provider, error) {
	switch exporter {
	case ExporterPrometheus:
		reg := promclient.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("metricx: prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
		return &Provider{
			MeterProvider: mp,
			handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			shutdown:      mp.Shutdown,
		}, nil

	case ExporterNone, "":
		return Noop(), nil

	default:
		return nil, fmt.Errorf("metricx: unknown exporter %q", exporter)
	}
}

// Noop returns a provider that records nothing.
func Noop() *Provider {
	return &Provider{
		MeterProvider: noop.NewMeterProvider(),
		handler:       http.NotFoundHandler(),
		shutdown:      func(context.Context) error { return nil },
	}
}

// Handler serves the scrape endpoint. For the noop provider it is a 404.
func (p *Provider) Handler() http.Handler { return p.handler }

// Shutdown flushes and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error { return p.shutdown(ctx) }
