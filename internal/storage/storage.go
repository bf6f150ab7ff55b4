// package storage writes media bytes to S3-compatible object storage.
//
// Works against AWS S3 proper and S3-compatible stores such as Cloudflare R2
// (custom endpoint, region "auto"). Keys are deterministic per asset, so
// re-uploading after a lost ledger commit harmlessly overwrites the same
// object.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/drivesync/internal/shared"
)

// Uploader writes one object to durable storage.
type Uploader interface {
	// Upload stores body at key with the given content type, overwriting any
	// existing object. No retries are performed.
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// UploadError wraps a transport or authorization failure from the object store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Config contains object store connection settings.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// putObjectAPI is the slice of the S3 client the uploader needs.
// Declared locally so tests can substitute a mock client.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader implements [Uploader] over the AWS SDK v2 S3 client.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	logger *log.Logger
}

// NewS3Uploader creates an S3Uploader from the given settings.
//
// Static credentials from the config take precedence; with none supplied the
// SDK's default credential chain applies. An endpoint is required for
// non-AWS stores.
func NewS3Uploader(ctx context.Context, cfg Config, logger *log.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: storage bucket is required", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// NewS3UploaderWithClient creates an S3Uploader around an existing client.
// Used by tests to inject a mock PutObject implementation.
func NewS3UploaderWithClient(client putObjectAPI, bucket string, logger *log.Logger) *S3Uploader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &S3Uploader{client: client, bucket: bucket, logger: logger}
}

// Upload stores body at key with the given content type.
//
// The declared content type is derived from the asset kind, not the bytes.
// The bytes are sniffed only to warn when Drive served something unexpected
// (a quota page, a stray PNG); the payload is stored unchanged either way.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if detected := mimetype.Detect(body); !mimetype.EqualsAny(contentType, detected.String()) {
		u.logger.Warn("content type mismatch", "key", key, "declared", contentType, "detected", detected.String())
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &UploadError{Key: key, Err: err}
	}

	return nil
}
