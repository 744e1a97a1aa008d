// File: pkg/storage/gcp/client.go
package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cabinet/pkg/common"
	"cabinet/pkg/storage"
	"cabinet/pkg/storage/objectstore"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Config binds a cabinet to a GCS bucket
type Config struct {
	Bucket string `mapstructure:"bucket" validate:"required"`
	// Needed only for Monitoring-based usage reporting
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file" validate:"omitempty,file"`
	// Custom endpoint, e.g. a local emulator. Disables authentication.
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Delimiter string `mapstructure:"delimiter"`
}

// GCPStorage is a cabinet stored in one GCS bucket
type GCPStorage struct {
	*objectstore.Provider
	client    *gcpstorage.Client
	bucket    string
	projectID string
	keyPrefix string
	opts      []option.ClientOption
	logger    *slog.Logger
}

var (
	_ storage.Storage       = (*GCPStorage)(nil)
	_ storage.UsageReporter = (*GCPStorage)(nil)
)

func NewGCPStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (*GCPStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: GCS configuration is required", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w: GCS bucket is required", storage.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := clientOptions(cfg)
	client, err := gcpstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP storage client: %w", err)
	}

	provider, err := objectstore.New(newGCSClient(client.Bucket(cfg.Bucket), logger), objectstore.Options{
		Provider:  common.GCS,
		KeyPrefix: cfg.KeyPrefix,
		Delimiter: cfg.Delimiter,
		Logger:    logger,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &GCPStorage{
		Provider:  provider,
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
		keyPrefix: provider.KeySpace().Prefix(),
		opts:      opts,
		logger:    logger,
	}, nil
}

func clientOptions(cfg *Config) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

func (g *GCPStorage) Bucket() string {
	return g.bucket
}

func (g *GCPStorage) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
