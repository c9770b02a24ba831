// Package s3 provides the read-only S3 backend the benchmark filesystem is
// served from: ranged object reads, metadata lookups, and prefix listings.
// Retries are delegated to the AWS SDK's retryer; the harness itself never
// retries.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound reports that the requested key does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a single object, as returned by Head and List calls.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Backend is a read-only view of one S3 bucket.
type Backend struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewBackend constructs the S3 client for the given bucket. Credentials are
// resolved through the SDK's default chain; a bad region or missing
// credentials surface here, before anything is mounted.
func NewBackend(ctx context.Context, bucket string, cfg *Config, logger *slog.Logger) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(cfg.MaxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return &Backend{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// GetObject reads size bytes starting at offset. size <= 0 means "to the end
// of the object".
func (b *Backend) GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}
	if r := rangeHeader(offset, size); r != "" {
		input.Range = aws.String(r)
	}

	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, b.translateError(err, "get", key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", key, err)
	}
	return data, nil
}

// HeadObject returns metadata for a single key.
func (b *Backend) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.translateError(err, "head", key)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
	}, nil
}

// ListObjects returns up to limit objects under prefix; limit <= 0 lists
// everything.
func (b *Backend) ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}

	var infos []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, b.translateError(err, "list", prefix)
		}
		for _, obj := range page.Contents {
			infos = append(infos, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
			if limit > 0 && len(infos) >= limit {
				return infos, nil
			}
		}
	}
	return infos, nil
}

// HealthCheck verifies the bucket is reachable with the resolved credentials.
func (b *Backend) HealthCheck(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

// Bucket returns the bucket this backend reads from.
func (b *Backend) Bucket() string {
	return b.bucket
}

// Close releases client resources. The SDK client holds no long-lived
// connections of its own, so this is currently a no-op kept for symmetry
// with the mount lifecycle.
func (b *Backend) Close() error {
	return nil
}

// rangeHeader builds an HTTP Range header value for a ranged GET, or ""
// when the whole object is wanted.
func rangeHeader(offset, size int64) string {
	switch {
	case size > 0:
		return fmt.Sprintf("bytes=%d-%d", offset, offset+size-1)
	case offset > 0:
		return fmt.Sprintf("bytes=%d-", offset)
	default:
		return ""
	}
}

func (b *Backend) translateError(err error, op, key string) error {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s %s: %w", op, key, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
