package storage

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/depot/pkg/api"
)

// Storage types
const (
	TypeFilesystem = "filesystem"
	TypePostgres   = "postgres"
	TypeS3         = "s3"
)

// ErrNotFound is returned when a requested package does not exist in a backend
var ErrNotFound = errors.New("package not found")

// Source lists every package installed in a library
type Source interface {
	ListPackages(ctx context.Context) ([]api.Package, error)
}

// Sink persists package records
type Sink interface {
	SavePackage(ctx context.Context, pkg *api.Package) error
}

// Config for storage backend
type Config struct {
	Type string // "filesystem", "postgres", "s3"

	// Filesystem config
	FilesystemRoot string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3Prefix       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Redis config, used to publish built dependency maps
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	RedisKeyPrefix  string
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             TypeFilesystem,
		FilesystemRoot:   "./library",
		PostgresMaxConns: 10,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		S3Region:         "us-east-1",
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		RedisKeyPrefix:   "depot",
	}
}
