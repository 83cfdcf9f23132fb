package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments for library rescans.
// They are exported over OTLP alongside the Prometheus metrics when
// OpenTelemetry is enabled. A nil *OTelMetrics records nothing.
type OTelMetrics struct {
	rescansTotal   metric.Int64Counter
	rescanDuration metric.Float64Histogram
	packages       metric.Int64Gauge
	edges          metric.Int64Gauge
	unresolved     metric.Int64Gauge
	buildCache     metric.Int64Counter
}

// NewOTelMetrics creates the instruments on provider, or on the global meter
// provider when provider is nil
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("github.com/platinummonkey/depot")

	m := &OTelMetrics{}
	var err error

	m.rescansTotal, err = meter.Int64Counter(
		"depot.rescans",
		metric.WithDescription("Total number of library rescans"),
		metric.WithUnit("{rescan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rescans counter: %w", err)
	}

	m.rescanDuration, err = meter.Float64Histogram(
		"depot.rescan.duration",
		metric.WithDescription("Library rescan duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rescan duration histogram: %w", err)
	}

	m.packages, err = meter.Int64Gauge(
		"depot.packages.indexed",
		metric.WithDescription("Number of packages in the current identity index"),
		metric.WithUnit("{package}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create packages gauge: %w", err)
	}

	m.edges, err = meter.Int64Gauge(
		"depot.dependency.edges",
		metric.WithDescription("Number of reverse dependency edges"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create edges gauge: %w", err)
	}

	m.unresolved, err = meter.Int64Gauge(
		"depot.dependency.unresolved",
		metric.WithDescription("Number of dependency references that matched no package"),
		metric.WithUnit("{reference}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unresolved gauge: %w", err)
	}

	m.buildCache, err = meter.Int64Counter(
		"depot.build_cache.lookups",
		metric.WithDescription("Build cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build cache counter: %w", err)
	}

	return m, nil
}

// RecordRescan records one rescan. Gauges are only updated for successful rescans.
func (m *OTelMetrics) RecordRescan(ctx context.Context, status string, duration time.Duration, indexed, edges, unresolved int) {
	if m == nil {
		return
	}

	m.rescansTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if status != "success" {
		return
	}
	m.rescanDuration.Record(ctx, duration.Seconds())
	m.packages.Record(ctx, int64(indexed))
	m.edges.Record(ctx, int64(edges))
	m.unresolved.Record(ctx, int64(unresolved))
}

// RecordBuildCache records a build cache lookup
func (m *OTelMetrics) RecordBuildCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.buildCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
