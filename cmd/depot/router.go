package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/depot/pkg/config"
	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/httputil"
	"github.com/platinummonkey/depot/pkg/library"
	"github.com/platinummonkey/depot/pkg/observability"
)

// newRouter assembles the API router. registry and metrics may be nil when
// metrics are disabled. Rate limiter buckets are swept until ctx is done.
func newRouter(ctx context.Context, cfg config.ServerConfig, service *library.Service, logger *observability.Logger, registry *prometheus.Registry, metrics *observability.Metrics) *mux.Router {
	router := mux.NewRouter()

	router.Use(
		otelhttp.NewMiddleware("depot", otelhttp.WithSpanNameFormatter(spanName)),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)
	if cfg.MaxBodyBytes > 0 {
		router.Use(httputil.MaxBytesMiddleware(cfg.MaxBodyBytes))
	}
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}

	dependencies.NewDependencyHandlers(service).RegisterRoutes(router)
	libraryHandlers := library.NewLibraryHandlers(service)
	if cfg.RescanRateLimit > 0 {
		limiter := httputil.NewRateLimiter(httputil.RateLimitConfig{
			RequestsPerWindow: cfg.RescanRateLimit,
			WindowDuration:    time.Minute,
		})
		limiter.StartCleanup(ctx)
		libraryHandlers.WithRescanLimiter(limiter)
	}
	libraryHandlers.RegisterRoutes(router)

	if registry != nil {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods("GET")
	}

	return router
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + observability.RouteTemplate(r)
}

// newHealthMux serves the liveness and readiness probes
func newHealthMux(checker *observability.HealthChecker) *http.ServeMux {
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	return healthMux
}
