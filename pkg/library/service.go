package library

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
)

var tracer = otel.Tracer("github.com/platinummonkey/depot/pkg/library")

// ErrNoSnapshot is returned before the first successful rescan
var ErrNoSnapshot = errors.New("no snapshot has been built yet")

// Publisher receives every new snapshot
type Publisher interface {
	Publish(ctx context.Context, scanID string, builtAt time.Time, result *dependencies.Result) error
}

// Rescanner rebuilds the library snapshot
type Rescanner interface {
	Rescan(ctx context.Context) (*Snapshot, error)
}

// Snapshot is one immutable build of the library
type Snapshot struct {
	ScanID      string               `json:"scan_id"`
	Fingerprint string               `json:"fingerprint"`
	BuiltAt     time.Time            `json:"built_at"`
	Duration    time.Duration        `json:"duration"`
	Cached      bool                 `json:"cached"`
	Result      *dependencies.Result `json:"-"`
}

// Options configures a Service
type Options struct {
	Logger    *observability.Logger
	Metrics   *observability.Metrics
	Publisher Publisher

	// OTelMetrics mirrors rescan metrics to OpenTelemetry; nil disables it
	OTelMetrics *observability.OTelMetrics

	// CacheSize is the number of builds kept by fingerprint; zero disables reuse
	CacheSize int
	CacheTTL  time.Duration
}

// Service rescans a storage.Source and serves the latest snapshot
type Service struct {
	source    storage.Source
	logger    *observability.Logger
	metrics   *observability.Metrics
	otel      *observability.OTelMetrics
	publisher Publisher
	cache     *lru.LRU[string, *dependencies.Result]
	flight    singleflight.Group
	current   atomic.Pointer[Snapshot]
}

// NewService creates a new library service
func NewService(source storage.Source, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Service{
		source:    source,
		logger:    logger,
		metrics:   opts.Metrics,
		otel:      opts.OTelMetrics,
		publisher: opts.Publisher,
	}
	if opts.CacheSize > 0 {
		s.cache = lru.NewLRU[string, *dependencies.Result](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// Rescan reads the library and installs a new snapshot. Callers arriving
// while a rescan is running share its outcome.
func (s *Service) Rescan(ctx context.Context) (*Snapshot, error) {
	v, err, shared := s.flight.Do("rescan", func() (interface{}, error) {
		return s.rescan(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Joined in-flight rescan")
	}
	return v.(*Snapshot), nil
}

func (s *Service) rescan(ctx context.Context) (*Snapshot, error) {
	scanID := uuid.NewString()
	ctx = observability.WithLogger(observability.WithScanID(ctx, scanID), s.logger)
	ctx, span := tracer.Start(ctx, "library.Rescan",
		trace.WithAttributes(attribute.String("scan.id", scanID)),
	)
	defer span.End()

	logger := observability.UpdateLoggerWithTraceContext(ctx, observability.FromContext(ctx))
	start := time.Now()

	packages, err := s.source.ListPackages(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list packages")
		if s.metrics != nil {
			s.metrics.RescansTotal.WithLabelValues("error").Inc()
		}
		s.otel.RecordRescan(ctx, "error", time.Since(start), 0, 0, 0)
		logger.WithError(err).Error("Library scan failed")
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	fingerprint := Fingerprint(packages)
	result, cached := s.lookup(ctx, fingerprint)
	if !cached {
		result = dependencies.Analyze(packages)
		if s.cache != nil {
			s.cache.Add(fingerprint, result)
		}
	}

	snapshot := &Snapshot{
		ScanID:      scanID,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now().UTC(),
		Duration:    time.Since(start),
		Cached:      cached,
		Result:      result,
	}
	s.current.Store(snapshot)

	span.SetAttributes(
		attribute.Int("packages.count", result.Report.Packages),
		attribute.Int("edges.count", result.Report.Edges),
		attribute.Bool("cache.hit", cached),
	)
	span.SetStatus(codes.Ok, "library rescanned")

	s.record(ctx, snapshot)
	s.report(logger, snapshot)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, scanID, snapshot.BuiltAt, result); err != nil {
			span.RecordError(err)
			if s.metrics != nil {
				s.metrics.PublishErrorsTotal.Inc()
			}
			logger.WithError(err).Warn("Failed to publish dependency map")
		}
	}

	return snapshot, nil
}

func (s *Service) lookup(ctx context.Context, fingerprint string) (*dependencies.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	result, ok := s.cache.Get(fingerprint)
	s.otel.RecordBuildCache(ctx, ok)
	if s.metrics != nil {
		if ok {
			s.metrics.BuildCacheHits.Inc()
		} else {
			s.metrics.BuildCacheMisses.Inc()
		}
	}
	return result, ok
}

func (s *Service) record(ctx context.Context, snapshot *Snapshot) {
	report := snapshot.Result.Report
	s.otel.RecordRescan(ctx, "success", snapshot.Duration, report.Indexed, report.Edges, len(report.Unresolved))

	if s.metrics == nil {
		return
	}

	s.metrics.RescansTotal.WithLabelValues("success").Inc()
	s.metrics.RescanDuration.Observe(snapshot.Duration.Seconds())
	s.metrics.PackagesIndexed.Set(float64(report.Indexed))
	s.metrics.DependencyEdges.Set(float64(report.Edges))
	s.metrics.UnresolvedTotal.Set(float64(len(report.Unresolved)))
	s.metrics.DuplicateIDs.Set(float64(len(report.Duplicates)))
	s.metrics.LastRescanTimestamp.Set(float64(snapshot.BuiltAt.Unix()))
	for strategy, count := range report.StrategyCounts {
		s.metrics.ResolutionsTotal.WithLabelValues(string(strategy)).Add(float64(count))
	}
}

func (s *Service) report(logger *observability.Logger, snapshot *Snapshot) {
	report := snapshot.Result.Report

	for _, dup := range report.Duplicates {
		logger.WithFields(map[string]interface{}{
			"package_id":  dup.ID,
			"occurrences": dup.Occurrences,
		}).Warn("Duplicate package identifier, last one wins")
	}
	for _, miss := range report.Unresolved {
		logger.WithFields(map[string]interface{}{
			"consumer":   miss.Consumer,
			"dependency": miss.Dependency,
		}).Debug("Unresolved dependency")
	}

	logger.WithFields(map[string]interface{}{
		"fingerprint": snapshot.Fingerprint,
		"packages":    report.Packages,
		"indexed":     report.Indexed,
		"edges":       report.Edges,
		"unresolved":  len(report.Unresolved),
		"duplicates":  len(report.Duplicates),
		"cached":      snapshot.Cached,
		"duration_ms": snapshot.Duration.Milliseconds(),
	}).Info("Library rescanned")
}

// Current implements dependencies.ResultSource. It returns nil before the
// first successful rescan.
func (s *Service) Current() *dependencies.Result {
	if snapshot := s.current.Load(); snapshot != nil {
		return snapshot.Result
	}
	return nil
}

// Snapshot returns the current snapshot
func (s *Service) Snapshot() (*Snapshot, error) {
	snapshot := s.current.Load()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return snapshot, nil
}

// Ready reports whether a snapshot is available
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}
