// Package observability provides structured logging, Prometheus metrics, health
// checks, and OpenTelemetry tracing for depot.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("scan_id", id).Info("Library rescanned")
//
// Context-aware logging:
//
//	ctx = observability.WithLogger(ctx, logger)
//	ctx = observability.WithScanID(ctx, id)
//	observability.FromContext(ctx).Warn("Unresolved dependency")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RescansTotal.WithLabelValues("success").Inc()
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, service)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/library: Records rescan metrics and spans
package observability
