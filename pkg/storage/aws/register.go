// File: pkg/storage/aws/register.go
package aws

import (
	"context"
	"log/slog"

	"cabinet/internal/config"
	"cabinet/internal/provider/registry"
	"cabinet/pkg/common"
	"cabinet/pkg/storage"
)

func init() {
	registry.RegisterProvider(common.AmazonS3.String(), registry.ProviderRegistration{
		ConfigCheck: isConfigured,
		Initializer: initialize,
	})
}

func decodeConfig(settings map[string]any) (*Config, error) {
	var cfg Config
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Checks that bucket and region are set and credentials come in pairs
func isConfigured(settings map[string]any) error {
	_, err := decodeConfig(settings)
	return err
}

func initialize(ctx context.Context, settings map[string]any, logger *slog.Logger) (storage.Storage, error) {
	cfg, err := decodeConfig(settings)
	if err != nil {
		return nil, err
	}
	return NewAWSStorage(ctx, cfg, logger)
}
