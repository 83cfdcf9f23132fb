package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Library scan metrics
	RescansTotal        *prometheus.CounterVec
	RescanDuration      prometheus.Histogram
	PackagesIndexed     prometheus.Gauge
	DependencyEdges     prometheus.Gauge
	UnresolvedTotal     prometheus.Gauge
	DuplicateIDs        prometheus.Gauge
	ResolutionsTotal    *prometheus.CounterVec
	BuildCacheHits      prometheus.Counter
	BuildCacheMisses    prometheus.Counter
	PublishErrorsTotal  prometheus.Counter
	LastRescanTimestamp prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RescansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_rescans_total",
				Help: "Total number of library rescans",
			},
			[]string{"status"},
		),
		RescanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "depot_rescan_duration_seconds",
				Help:    "Library rescan duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		PackagesIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depot_packages_indexed",
				Help: "Number of packages in the current identity index",
			},
		),
		DependencyEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depot_dependency_edges",
				Help: "Number of reverse dependency edges in the current snapshot",
			},
		),
		UnresolvedTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depot_unresolved_dependencies",
				Help: "Number of declared dependencies that resolved to no installed package",
			},
		),
		DuplicateIDs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depot_duplicate_identifiers",
				Help: "Number of canonical identifiers declared by more than one package",
			},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_resolutions_total",
				Help: "Total number of dependency references resolved, by strategy",
			},
			[]string{"strategy"},
		),
		BuildCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depot_build_cache_hits_total",
				Help: "Rescans answered from the build cache",
			},
		),
		BuildCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depot_build_cache_misses_total",
				Help: "Rescans that required a new build",
			},
		),
		PublishErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depot_publish_errors_total",
				Help: "Snapshot publications that failed",
			},
		),
		LastRescanTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depot_last_rescan_timestamp_seconds",
				Help: "Unix time of the last successful rescan",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RescansTotal,
		m.RescanDuration,
		m.PackagesIndexed,
		m.DependencyEdges,
		m.UnresolvedTotal,
		m.DuplicateIDs,
		m.ResolutionsTotal,
		m.BuildCacheHits,
		m.BuildCacheMisses,
		m.PublishErrorsTotal,
		m.LastRescanTimestamp,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled by their mux route template so identifiers in the
// path do not explode label cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := RouteTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RouteTemplate returns the mux path template matched by r, or "unmatched"
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// MetricsHandler returns the /metrics handler for registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
