package sensorlog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the backup uploader for S3 or S3-compatible storage.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // for S3-compatible services (MinIO, etc.)
	// AccessKeyID for authentication. Prefer IAM roles, instance profiles,
	// or environment credentials over setting these directly.
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // key prefix for all uploaded objects
	UsePathStyle    bool
}

// S3Uploader copies backup files to an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Uploader creates an uploader from the given configuration.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Uploader{client: client, cfg: cfg}, nil
}

// Upload stores the body under the configured prefix and returns the
// object key.
func (u *S3Uploader) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	key := u.key(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// Download fetches a previously uploaded object. The caller closes the
// returned body.
func (u *S3Uploader) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := u.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return out.Body, nil
}

func (u *S3Uploader) key(name string) string {
	if u.cfg.Prefix == "" {
		return name
	}
	return strings.TrimSuffix(u.cfg.Prefix, "/") + "/" + name
}
