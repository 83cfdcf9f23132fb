package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/depot/pkg/async"
	"github.com/platinummonkey/depot/pkg/config"
	"github.com/platinummonkey/depot/pkg/library"
	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithField("version", version)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("depot stopped with an error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	var otelMetrics *observability.OTelMetrics
	if providers != nil && providers.MeterProvider != nil {
		otelMetrics, err = observability.NewOTelMetrics(providers.MeterProvider)
		if err != nil {
			return fmt.Errorf("failed to create OpenTelemetry metrics: %w", err)
		}
	}

	backend, err := openBackend(ctx, cfg.Storage, logger)
	if err != nil {
		observability.ShutdownOTel(ctx, providers, logger)
		return fmt.Errorf("failed to open storage: %w", err)
	}

	service := library.NewService(backend.source, library.Options{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: backend.libraryPublisher(),
		CacheSize: cfg.Library.BuildCacheSize,
		CacheTTL:  cfg.Library.BuildCacheTTL,

		OTelMetrics: otelMetrics,
	})

	// A failed first scan leaves the API answering 503 until a later rescan succeeds
	if _, err := service.Rescan(ctx); err != nil {
		logger.WithError(err).Error("Initial library scan failed")
	}

	var scheduler *library.Scheduler
	if cfg.Library.RescanSchedule != "" {
		scheduler, err = library.NewScheduler(cfg.Library.RescanSchedule, service, logger)
		if err != nil {
			backend.Close()
			return err
		}
		scheduler.Start()
	}

	var watcher *library.Watcher
	if cfg.Storage.Type == storage.TypeFilesystem && cfg.Library.WatchEnabled {
		watcher, err = library.NewWatcher(backend.root, cfg.Library.WatchDebounce, service, logger)
		if err != nil {
			logger.WithError(err).Warn("File watching disabled")
		} else {
			async.SafeGo(ctx, logger, 0, "file watcher", watcher.Run)
		}
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(ctx, cfg.Server, service, logger, registry, metrics),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	checker := observability.NewHealthChecker(backend.db, backend.redisClient(), service).WithVersion(version)
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      newHealthMux(checker),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	if scheduler != nil {
		shutdown.RegisterShutdownFunc(scheduler.Stop)
	}
	if watcher != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return watcher.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return backend.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	for _, server := range []*http.Server{apiServer, healthServer} {
		async.SafeGo(ctx, logger, 0, "listener "+server.Addr, func(context.Context) error {
			logger.Infof("Listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cancel()
				return err
			}
			return nil
		})
	}

	return shutdown.WaitForShutdown(ctx)
}
