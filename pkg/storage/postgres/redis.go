package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/storage"
)

// RedisPublisher publishes built reverse dependency maps to Redis so other
// processes can answer dependents queries without rebuilding.
//
// Layout, with the default "depot" prefix:
//
//	depot:dependents  hash  package id -> JSON array of consumer ids
//	depot:snapshot    hash  scan_id, built_at, packages, edges
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher connects to Redis using config
func NewRedisPublisher(config storage.Config) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB > 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPublisherFromClient(client, config.RedisKeyPrefix), nil
}

// NewRedisPublisherFromClient wraps an existing client
func NewRedisPublisherFromClient(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "depot"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) dependentsKey() string {
	return p.prefix + ":dependents"
}

func (p *RedisPublisher) snapshotKey() string {
	return p.prefix + ":snapshot"
}

// Publish replaces the published map with result in a single transaction
func (p *RedisPublisher) Publish(ctx context.Context, scanID string, builtAt time.Time, result *dependencies.Result) error {
	ctx, span := tracer.Start(ctx, "RedisPublisher.Publish")
	defer span.End()

	fields := make(map[string]interface{}, len(result.Dependents))
	for id, consumers := range result.Dependents {
		data, err := json.Marshal(consumers)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to marshal consumers of %s: %w", id, err)
		}
		fields[id] = data
	}

	meta := map[string]interface{}{
		"scan_id":  scanID,
		"built_at": builtAt.UTC().Format(time.RFC3339Nano),
		"packages": result.Report.Packages,
		"edges":    result.Report.Edges,
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.dependentsKey())
		if len(fields) > 0 {
			pipe.HSet(ctx, p.dependentsKey(), fields)
		}
		pipe.Del(ctx, p.snapshotKey())
		pipe.HSet(ctx, p.snapshotKey(), meta)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish dependency map: %w", err)
	}

	return nil
}

// Dependents returns the published consumers of id
func (p *RedisPublisher) Dependents(ctx context.Context, id string) ([]string, error) {
	data, err := p.client.HGet(ctx, p.dependentsKey(), id).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}

	var consumers []string
	if err := json.Unmarshal([]byte(data), &consumers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consumers of %s: %w", id, err)
	}
	return consumers, nil
}

// SnapshotMeta describes the most recently published map
type SnapshotMeta struct {
	ScanID   string
	BuiltAt  time.Time
	Packages int
	Edges    int
}

// SnapshotMeta returns the metadata of the published map
func (p *RedisPublisher) SnapshotMeta(ctx context.Context) (*SnapshotMeta, error) {
	values, err := p.client.HGetAll(ctx, p.snapshotKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no published snapshot", storage.ErrNotFound)
	}

	meta := &SnapshotMeta{ScanID: values["scan_id"]}
	if meta.BuiltAt, err = time.Parse(time.RFC3339Nano, values["built_at"]); err != nil {
		return nil, fmt.Errorf("invalid built_at: %w", err)
	}
	if meta.Packages, err = strconv.Atoi(values["packages"]); err != nil {
		return nil, fmt.Errorf("invalid packages count: %w", err)
	}
	if meta.Edges, err = strconv.Atoi(values["edges"]); err != nil {
		return nil, fmt.Errorf("invalid edges count: %w", err)
	}
	return meta, nil
}

// Ping checks Redis connectivity
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// GetClient returns the underlying Redis client for health checks
func (p *RedisPublisher) GetClient() *redis.Client {
	return p.client
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
