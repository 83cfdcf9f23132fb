package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/depot/pkg/library"
	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
	"github.com/platinummonkey/depot/pkg/storage/postgres"
)

// backend is the package source selected by configuration plus the optional
// Redis publisher
type backend struct {
	source    storage.Source
	root      string // set for filesystem sources only
	db        *sql.DB
	publisher *postgres.RedisPublisher
	closers   []func() error
}

func openBackend(ctx context.Context, cfg storage.Config, logger *observability.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Type {
	case storage.TypeFilesystem:
		store, err := storage.NewFileSystemStorage(cfg.FilesystemRoot)
		if err != nil {
			return nil, err
		}
		b.source = store
		b.root = store.Root()
		logger.Infof("Reading library from %s", store.Root())

	case storage.TypePostgres:
		store, err := postgres.NewPostgresStorage(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		b.source = store
		b.db = store.DB()
		b.closers = append(b.closers, store.Close)
		logger.Info("Reading library from PostgreSQL")

	case storage.TypeS3:
		source, err := postgres.NewS3Source(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.source = source
		logger.Infof("Reading library from s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if cfg.RedisURL != "" {
		publisher, err := postgres.NewRedisPublisher(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.publisher = publisher
		b.closers = append(b.closers, publisher.Close)
		logger.Info("Publishing snapshots to Redis")
	}

	return b, nil
}

// libraryPublisher returns the publisher as a library.Publisher, or nil
func (b *backend) libraryPublisher() library.Publisher {
	if b.publisher == nil {
		return nil
	}
	return b.publisher
}

func (b *backend) redisClient() *redis.Client {
	if b.publisher == nil {
		return nil
	}
	return b.publisher.GetClient()
}

// Close releases connections in reverse order of opening
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
