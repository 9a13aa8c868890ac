package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/logger"
	"go.uber.org/zap"
)

// ObjectStore is the blob storage the S3 image backend writes order photos to
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// S3ObjectStore stores objects in a single S3 (or S3-compatible) bucket
type S3ObjectStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
	log     *zap.Logger
}

// NewS3ObjectStore builds a bucket client from configuration. Static
// credentials are used when configured, otherwise the default AWS chain.
// A custom endpoint switches to path-style addressing.
func NewS3ObjectStore(ctx context.Context, cfg *appConfig.Config, log *zap.Logger) (*S3ObjectStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.AWSS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSS3Endpoint)
			o.UsePathStyle = true
		}
	})

	log = logger.OrNop(log).Named("s3")
	log.Info("S3 object store configured",
		zap.String("bucket", cfg.AWSS3Bucket),
		zap.String("region", cfg.AWSRegion),
		zap.Bool("custom_endpoint", cfg.AWSS3Endpoint != ""))

	return &S3ObjectStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.AWSS3Bucket,
		urlTTL:  time.Hour,
		log:     log,
	}, nil
}

// PutObject streams body into the bucket under key
func (s *S3ObjectStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	s.log.Debug("Object stored", zap.String("key", key), zap.Int64("size", size))
	return nil
}

// PresignGet returns a time-limited GET URL for a private object
func (s *S3ObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return request.URL, nil
}

// DeleteObject removes key from the bucket. S3 treats missing keys as deleted.
func (s *S3ObjectStore) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}

	s.log.Debug("Object deleted", zap.String("key", key))
	return nil
}
