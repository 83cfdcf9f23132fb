package postgres

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/storage"
)

// s3API is the subset of *s3.Client used by S3Source
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads package metadata objects stored under a bucket prefix
type S3Source struct {
	client      s3API
	bucket      string
	prefix      string
	concurrency int
}

// NewS3Source creates an S3 source from config
func NewS3Source(ctx context.Context, cfg storage.Config) (*S3Source, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var awsConfig aws.Config
	var err error

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		// Static credentials (MinIO or explicit keys)
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars, etc.)
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.S3Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return newS3Source(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newS3Source(client s3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: 8,
	}
}

// ListPackages implements storage.Source.ListPackages. Packages are returned in key order.
func (s *S3Source) ListPackages(ctx context.Context) ([]api.Package, error) {
	ctx, span := tracer.Start(ctx, "S3Source.ListPackages",
		trace.WithAttributes(
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.prefix", s.prefix),
		),
	)
	defer span.End()

	keys, err := s.listMetadataKeys(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list objects")
		return nil, err
	}

	packages := make([]api.Package, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			pkg, err := s.fetch(gctx, key)
			if err != nil {
				return err
			}
			packages[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read metadata object")
		return nil, err
	}

	span.SetAttributes(attribute.Int("packages.count", len(packages)))
	span.SetStatus(codes.Ok, "packages listed")
	return packages, nil
}

func (s *S3Source) listMetadataKeys(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if storage.IsMetadataFile(key) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	return keys, nil
}

func (s *S3Source) fetch(ctx context.Context, key string) (api.Package, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return api.Package{}, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return api.Package{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	pkg, err := storage.DecodeMetadata(key, data)
	if err != nil {
		return api.Package{}, err
	}
	pkg.Source = "s3://" + s.bucket + "/" + strings.TrimPrefix(key, "/")

	return pkg, nil
}
