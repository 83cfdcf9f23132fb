package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/storage"
)

var tracer = otel.Tracer("github.com/platinummonkey/depot/pkg/storage/postgres")

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	creator      TEXT NOT NULL DEFAULT '',
	package_name TEXT NOT NULL,
	version      TEXT NOT NULL DEFAULT '',
	dependencies JSONB NOT NULL DEFAULT '{}',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (creator, package_name, version)
)`

// PostgresStorage stores package metadata in a PostgreSQL table
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects to PostgreSQL using config
func NewPostgresStorage(config storage.Config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	timeout := config.PostgresTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewPostgresStorageFromDB(db), nil
}

// NewPostgresStorageFromDB wraps an existing connection pool
func NewPostgresStorageFromDB(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// EnsureSchema creates the packages table if it does not exist
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create packages table: %w", err)
	}
	return nil
}

// ListPackages implements storage.Source.ListPackages
func (s *PostgresStorage) ListPackages(ctx context.Context) ([]api.Package, error) {
	ctx, span := tracer.Start(ctx, "PostgresStorage.ListPackages",
		trace.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	defer span.End()

	query := `
		SELECT creator, package_name, version, dependencies
		FROM packages
		ORDER BY creator, package_name, version
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []api.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			return nil, err
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "row iteration failed")
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}

	span.SetAttributes(attribute.Int("packages.count", len(packages)))
	return packages, nil
}

// SavePackage implements storage.Sink.SavePackage, replacing the dependencies
// of an existing row
func (s *PostgresStorage) SavePackage(ctx context.Context, pkg *api.Package) error {
	if pkg.PackageName == "" {
		return fmt.Errorf("%w: packageName is required", storage.ErrInvalidMetadata)
	}

	deps := pkg.Dependencies
	if deps == nil {
		deps = map[string]interface{}{}
	}
	data, err := json.Marshal(deps)
	if err != nil {
		return fmt.Errorf("failed to marshal dependencies: %w", err)
	}

	query := `
		INSERT INTO packages (creator, package_name, version, dependencies)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (creator, package_name, version)
		DO UPDATE SET dependencies = EXCLUDED.dependencies, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, pkg.Creator, pkg.PackageName, pkg.Version, data); err != nil {
		return fmt.Errorf("failed to save package: %w", err)
	}
	pkg.Source = rowSource(pkg.Creator, pkg.PackageName, pkg.Version)

	return nil
}

// Ping verifies database connectivity
func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// DB returns the underlying connection pool
func (s *PostgresStorage) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func scanPackage(rows *sql.Rows) (api.Package, error) {
	var (
		pkg  api.Package
		deps []byte
	)
	if err := rows.Scan(&pkg.Creator, &pkg.PackageName, &pkg.Version, &deps); err != nil {
		return api.Package{}, fmt.Errorf("failed to scan package: %w", err)
	}

	if len(deps) > 0 {
		if err := json.Unmarshal(deps, &pkg.Dependencies); err != nil {
			return api.Package{}, fmt.Errorf("failed to decode dependencies of %s: %w", pkg.ID(), err)
		}
	}
	pkg.Source = rowSource(pkg.Creator, pkg.PackageName, pkg.Version)

	return pkg, nil
}

func rowSource(creator, packageName, version string) string {
	return fmt.Sprintf("postgres:packages/%s/%s/%s", creator, packageName, version)
}
