// File: pkg/storage/aws/aws.go
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cabinet/pkg/common"
	"cabinet/pkg/storage"
	"cabinet/pkg/storage/objectstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config binds a cabinet to an S3 bucket or an S3-compatible store
type Config struct {
	Bucket string `mapstructure:"bucket" validate:"required"`
	Region string `mapstructure:"region" validate:"required"`
	// Custom endpoint for MinIO, R2 and other S3-compatible stores
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `mapstructure:"session_token"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Delimiter       string `mapstructure:"delimiter"`
	// Forced on when Endpoint is set
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// AWSStorage is a cabinet stored in one S3 bucket
type AWSStorage struct {
	*objectstore.Provider
	bucket string
	region string
}

var _ storage.Storage = (*AWSStorage)(nil)

func NewAWSStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (*AWSStorage, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// Static credentials are optional; the default chain covers env vars, profiles and IAM roles
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return newAWSStorage(client, cfg, logger)
}

// Wires an S3 API implementation into the shared object store provider
func newAWSStorage(api s3API, cfg *Config, logger *slog.Logger) (*AWSStorage, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := objectstore.New(newS3Client(api, cfg.Bucket, logger), objectstore.Options{
		Provider:  common.AmazonS3,
		KeyPrefix: cfg.KeyPrefix,
		Delimiter: cfg.Delimiter,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &AWSStorage{
		Provider: provider,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
	}, nil
}

func checkConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: S3 configuration is required", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return fmt.Errorf("%w: S3 bucket is required", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return fmt.Errorf("%w: S3 region is required", storage.ErrInvalidArgument)
	}
	return nil
}

func (s *AWSStorage) Bucket() string {
	return s.bucket
}

func (s *AWSStorage) Region() string {
	return s.region
}
