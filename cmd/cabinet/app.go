// File: cmd/cabinet/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cabinet/internal/config"
	"cabinet/internal/provider/factory"
	"cabinet/internal/service"
	"cabinet/internal/ui/prompt"
	"cabinet/pkg/formatter"
)

// appContainer holds all the shared dependencies for the application
// This includes configuration, services, formatters, and the logger
type appContainer struct {
	Config           *config.Config
	ConfigManager    *config.ConfigManager
	CabinetFactory   *factory.Factory
	CabinetService   *service.CabinetService
	CabinetFormatter *formatter.CabinetFormatter
	Prompter         prompt.Prompter
	Logger           *slog.Logger
	Output           string
	Progress         bool

	// A broken config file must not block the config commands that repair it
	configErr error
}

// Creates and initializes a new application container
func newApp(logger *slog.Logger, in io.Reader, out io.Writer) (*appContainer, error) {
	cfgManager, err := config.NewConfigManager()
	if err != nil {
		return nil, err
	}

	cfg, cfgErr := cfgManager.LoadConfig()
	if cfgErr != nil {
		logger.Warn("Config file could not be loaded", "path", cfgManager.Path(), "error", cfgErr)
	}

	cabinetFactory := factory.NewFactory(cfg, logger)

	return &appContainer{
		Config:           cfg,
		ConfigManager:    cfgManager,
		CabinetFactory:   cabinetFactory,
		CabinetService:   service.NewCabinetService(cabinetFactory, logger),
		CabinetFormatter: formatter.NewCabinetFormatter(),
		Prompter:         prompt.NewStandardPrompter(in, out),
		Logger:           logger,
		configErr:        cfgErr,
	}, nil
}

// Returns the config load error, if any, for commands that need cabinets
func (a *appContainer) requireConfig() error {
	if a.configErr != nil {
		return fmt.Errorf("%w (fix it with 'cabinet config' or edit %s)", a.configErr, a.ConfigManager.Path())
	}
	return nil
}

type appKey struct{}

func contextWithApp(ctx context.Context, app *appContainer) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func appFromContext(ctx context.Context) (*appContainer, error) {
	if ctx != nil {
		if app, ok := ctx.Value(appKey{}).(*appContainer); ok {
			return app, nil
		}
	}
	return nil, errors.New("application is not initialized")
}
