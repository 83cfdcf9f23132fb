// Package library keeps an up-to-date reverse dependency snapshot of a
// package library.
//
// # Overview
//
// A Service reads every package from a storage.Source, builds the reverse
// dependency map with dependencies.Analyze and swaps the result in as the
// current Snapshot. Readers never block on a rebuild; they keep seeing the
// previous snapshot until the new one is complete.
//
// Rescans are triggered three ways:
//
//   - Explicitly, via Service.Rescan or POST /rescan
//   - By a Watcher observing metadata files under a filesystem root
//   - By a Scheduler running on a cron schedule
//
// Concurrent rescans share a single scan. A listing whose fingerprint matches
// a recent build reuses that build instead of analyzing again.
//
// # Usage
//
//	service := library.NewService(source, library.Options{
//		Logger:    logger,
//		Metrics:   metrics,
//		CacheSize: 8,
//		CacheTTL:  time.Hour,
//	})
//	if _, err := service.Rescan(ctx); err != nil {
//		return err
//	}
//	consumers := service.Current().DependentsOf("acme.widgets.3")
//
// # Related Packages
//
//   - pkg/dependencies: Resolution rules and the reverse dependency map
//   - pkg/storage: Package sources
//   - pkg/storage/postgres: RedisPublisher implements Publisher
package library
