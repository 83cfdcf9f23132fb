// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from DEPOT_* environment
// variables with sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	DEPOT_HOST="0.0.0.0"
//	DEPOT_PORT="8080"
//	DEPOT_HEALTH_PORT="9090"
//	DEPOT_READ_TIMEOUT="15s"
//	DEPOT_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	DEPOT_STORAGE_TYPE="filesystem"  # filesystem, postgres, s3
//	DEPOT_FILESYSTEM_ROOT="/var/lib/depot/library"
//	DEPOT_POSTGRES_URL="postgres://localhost/depot"
//	DEPOT_S3_BUCKET="depot-library"
//	DEPOT_S3_PREFIX="library/"
//	DEPOT_REDIS_URL="redis://localhost:6379"  # publish built maps when set
//
// Library settings:
//
//	DEPOT_RESCAN_SCHEDULE="@every 5m"  # empty disables periodic rescans
//	DEPOT_WATCH_ENABLED="true"
//	DEPOT_WATCH_DEBOUNCE="500ms"
//	DEPOT_BUILD_CACHE_SIZE="8"
//	DEPOT_BUILD_CACHE_TTL="1h"
//
// Observability settings:
//
//	DEPOT_LOG_LEVEL="info"  # debug, info, warn, error
//	DEPOT_METRICS_ENABLED="true"
//	DEPOT_OTEL_ENABLED="true"
//	DEPOT_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/library: Uses library configuration
//   - pkg/observability: Uses observability configuration
package config
