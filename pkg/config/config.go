package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Library rescan configuration
	Library LibraryConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// RescanRateLimit is the number of POST /rescan requests a client may
	// make per minute; zero disables the limit
	RescanRateLimit int

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// LibraryConfig controls when the library is rescanned
type LibraryConfig struct {
	RescanSchedule string // cron expression, empty disables periodic rescans
	WatchEnabled   bool
	WatchDebounce  time.Duration
	BuildCacheSize int
	BuildCacheTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// OTel returns the OpenTelemetry settings in the form InitOTel expects
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Library:       loadLibraryConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("DEPOT_HOST", "0.0.0.0"),
		Port:            getEnv("DEPOT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("DEPOT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("DEPOT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("DEPOT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("DEPOT_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("DEPOT_MAX_BODY_BYTES", 1<<20),
		RescanRateLimit: getEnvInt("DEPOT_RESCAN_RATE_LIMIT", 6),
		HealthPort:      getEnv("DEPOT_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// Storage type
	if storageType := getEnv("DEPOT_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = strings.ToLower(storageType)
	}

	// Filesystem config
	if fsRoot := getEnv("DEPOT_FILESYSTEM_ROOT", ""); fsRoot != "" {
		cfg.FilesystemRoot = fsRoot
	}

	// PostgreSQL config
	if pgURL := getEnv("DEPOT_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("DEPOT_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("DEPOT_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("DEPOT_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// S3 config
	if s3Endpoint := getEnv("DEPOT_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("DEPOT_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("DEPOT_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3Prefix := getEnv("DEPOT_S3_PREFIX", ""); s3Prefix != "" {
		cfg.S3Prefix = s3Prefix
	}
	if s3AccessKey := getEnv("DEPOT_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("DEPOT_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	cfg.S3UsePathStyle = getEnvBool("DEPOT_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	// Redis config
	if redisURL := getEnv("DEPOT_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("DEPOT_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("DEPOT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("DEPOT_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("DEPOT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}
	if prefix := getEnv("DEPOT_REDIS_KEY_PREFIX", ""); prefix != "" {
		cfg.RedisKeyPrefix = prefix
	}

	return cfg
}

// loadLibraryConfig loads rescan configuration from environment
func loadLibraryConfig() LibraryConfig {
	return LibraryConfig{
		RescanSchedule: getEnv("DEPOT_RESCAN_SCHEDULE", "@every 5m"),
		WatchEnabled:   getEnvBool("DEPOT_WATCH_ENABLED", true),
		WatchDebounce:  getEnvDuration("DEPOT_WATCH_DEBOUNCE", 500*time.Millisecond),
		BuildCacheSize: getEnvInt("DEPOT_BUILD_CACHE_SIZE", 8),
		BuildCacheTTL:  getEnvDuration("DEPOT_BUILD_CACHE_TTL", time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("DEPOT_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("DEPOT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("DEPOT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("DEPOT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("DEPOT_OTEL_SERVICE_NAME", "depot"),
		OTelServiceVersion: getEnv("DEPOT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("DEPOT_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("DEPOT_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.RescanRateLimit < 0 {
		return fmt.Errorf("rescan rate limit must not be negative")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case storage.TypeFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case storage.TypePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case storage.TypeS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be filesystem, postgres, or s3)", c.Storage.Type)
	}

	// Validate library config
	if c.Library.RescanSchedule != "" {
		if _, err := cron.ParseStandard(c.Library.RescanSchedule); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", c.Library.RescanSchedule, err)
		}
	}
	if c.Library.WatchDebounce < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}
	if c.Library.BuildCacheSize < 0 {
		return fmt.Errorf("build cache size must not be negative")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
