// Package s3store keeps the temporary document copy used by asynchronous
// analysis in S3.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"paythru/internal/ocr/ports"
	"paythru/internal/ocr/providers"
)

// API is the subset of *s3.Client the store calls.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements ports.ObjectStore.
type Store struct {
	api    API
	logger *slog.Logger
}

var _ ports.ObjectStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store.
func New(api API, opts ...Option) (*Store, error) {
	if api == nil {
		return nil, errors.New("s3 api is required")
	}
	s := &Store{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig creates a Store backed by a real S3 client.
func NewFromConfig(cfg aws.Config, opts ...Option) (*Store, error) {
	return New(s3.NewFromConfig(cfg), opts...)
}

// Put uploads body to s3://bucket/key. Failures are reported as upload errors.
func (s *Store) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return providers.NewError(providers.ErrorUpload, providers.ProviderS3, "", fmt.Errorf("put s3://%s/%s: %w", bucket, key, err))
	}
	s.logger.DebugContext(ctx, "temporary document stored", "bucket", bucket, "key", key)
	return nil
}

// Delete removes s3://bucket/key.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
