// File: pkg/storage/gcp/register.go
package gcp

import (
	"context"
	"log/slog"

	"cabinet/internal/config"
	"cabinet/internal/provider/registry"
	"cabinet/pkg/common"
	"cabinet/pkg/storage"
)

func init() {
	registry.RegisterProvider(common.GCS.String(), registry.ProviderRegistration{
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

// Checks if the bucket is set and the optional fields are well formed
func isConfigured(settings map[string]any) error {
	_, err := decodeConfig(settings)
	return err
}

// Initializes the GCS client from the cabinet settings
func initialize(ctx context.Context, settings map[string]any, logger *slog.Logger) (storage.Storage, error) {
	cfg, err := decodeConfig(settings)
	if err != nil {
		return nil, err
	}
	return NewGCPStorage(ctx, cfg, logger)
}
