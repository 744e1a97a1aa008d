// File: pkg/storage/filesystem/register.go
package filesystem

import (
	"context"
	"log/slog"

	"cabinet/internal/config"
	"cabinet/internal/provider/registry"
	"cabinet/pkg/common"
	"cabinet/pkg/storage"
)

func init() {
	registry.RegisterProvider(common.FileSystem.String(), registry.ProviderRegistration{
		ConfigCheck: checkConfig,
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

// Checks that the settings decode into a complete filesystem configuration
func checkConfig(settings map[string]any) error {
	_, err := decodeConfig(settings)
	return err
}

func initialize(ctx context.Context, settings map[string]any, logger *slog.Logger) (storage.Storage, error) {
	cfg, err := decodeConfig(settings)
	if err != nil {
		return nil, err
	}
	return New(cfg, logger)
}
