package coupon

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fileSource struct{}

// NewFileSource returns a Source that treats names as local file paths.
func NewFileSource() Source {
	return fileSource{}
}

func (fileSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open coupon file %s: %w", name, err)
	}
	return f, nil
}

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source returns a Source reading prefix plus the base name of each
// requested file from bucket, so local paths map onto one key prefix.
func NewS3Source(client ObjectGetter, bucket, prefix string) Source {
	return &s3Source{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *s3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.prefix + filepath.Base(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}
	return out.Body, nil
}

type fallbackSource struct {
	primary  Source
	fallback Source
	logger   zerolog.Logger
}

// NewFallbackSource tries primary first and opens the same name from
// fallback when that fails.
func NewFallbackSource(primary, fallback Source, logger zerolog.Logger) Source {
	return &fallbackSource{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "coupon-source").Logger(),
	}
}

func (s *fallbackSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.primary.Open(ctx, name)
	if err == nil {
		return rc, nil
	}

	s.logger.Warn().
		Err(err).
		Str("name", name).
		Msg("primary coupon source failed, using fallback")

	return s.fallback.Open(ctx, name)
}
