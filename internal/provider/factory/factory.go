// File: internal/provider/factory/factory.go
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"cabinet/internal/config"
	"cabinet/internal/provider/registry"
	"cabinet/pkg/storage"
)

var ErrUnknownCabinet = errors.New("unknown cabinet")

type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CabinetStatus describes a configured cabinet and whether it can be opened
type CabinetStatus struct {
	Name    string
	Type    string
	Ready   bool
	Problem string
}

// Returns every configured cabinet with its readiness, sorted by name
func (f *Factory) Cabinets() []CabinetStatus {
	names := f.cfg.CabinetNames()
	statuses := make([]CabinetStatus, 0, len(names))
	for _, name := range names {
		cab, _ := f.cfg.Cabinet(name)
		status := CabinetStatus{Name: name, Type: strings.ToLower(cab.Type)}
		if err := f.check(cab); err != nil {
			status.Problem = err.Error()
		} else {
			status.Ready = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Returns the names of cabinets whose provider is registered and whose settings are complete
func (f *Factory) GetConfiguredCabinets() []string {
	var ready []string
	for _, status := range f.Cabinets() {
		if status.Ready {
			ready = append(ready, status.Name)
		}
	}
	return ready
}

func (f *Factory) IsConfigured(name string) bool {
	cab, ok := f.cfg.Cabinet(name)
	return ok && f.check(cab) == nil
}

// Reports whether two cabinet names address the same storage: one cabinet
// under two spellings, or two cabinets with identical provider settings
func (f *Factory) SameStore(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	cabA, okA := f.cfg.Cabinet(a)
	cabB, okB := f.cfg.Cabinet(b)
	return okA && okB &&
		strings.EqualFold(cabA.Type, cabB.Type) &&
		reflect.DeepEqual(cabA.Settings, cabB.Settings)
}

func (f *Factory) check(cab config.CabinetConfig) error {
	registration, exists := registry.GetRegistration(cab.Type)
	if !exists {
		return fmt.Errorf("unsupported provider type %q. Supported types are: %v", cab.Type, registry.GetSupportedProviders())
	}
	return registration.ConfigCheck(cab.Settings)
}

// Initializes the storage provider for the named cabinet. The caller closes it.
func (f *Factory) GetCabinet(ctx context.Context, name string) (storage.Storage, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))
	cab, ok := f.cfg.Cabinet(normalizedName)
	if !ok {
		return nil, fmt.Errorf("%w: %q. Use 'cabinet config set cabinets.%s.type <type>'", ErrUnknownCabinet, name, normalizedName)
	}

	providerType := strings.ToLower(cab.Type)
	registration, exists := registry.GetRegistration(providerType)
	if !exists {
		return nil, fmt.Errorf("cabinet %s: unsupported provider type %q. Supported types are: %v", normalizedName, cab.Type, registry.GetSupportedProviders())
	}

	if err := registration.ConfigCheck(cab.Settings); err != nil {
		return nil, fmt.Errorf("cabinet '%s' is not fully configured: %w", normalizedName, err)
	}

	cabinetLogger := f.logger.With("cabinet", normalizedName, "provider", providerType)
	client, err := registration.Initializer(ctx, cab.Settings, cabinetLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cabinet %s: %w", normalizedName, err)
	}

	return client, nil
}
