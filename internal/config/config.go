// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	ConfigFileName = "config.json"
	ConfigDirName  = "cabinet"
	// Overrides the config file location
	ConfigPathEnv = "CABINET_CONFIG"

	cabinetsKey = "cabinets"
)

// CabinetConfig is one named cabinet: a provider type plus its provider-specific settings
type CabinetConfig struct {
	Type     string         `mapstructure:"type" validate:"required"`
	Settings map[string]any `mapstructure:"config"`
}

type Config struct {
	Cabinets map[string]CabinetConfig `mapstructure:"cabinets" validate:"dive"`
}

// Returns the cabinet with the given name
func (c *Config) Cabinet(name string) (CabinetConfig, bool) {
	if c == nil {
		return CabinetConfig{}, false
	}
	cab, ok := c.Cabinets[strings.ToLower(name)]
	return cab, ok
}

// Returns the configured cabinet names, sorted
func (c *Config) CabinetNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Cabinets))
	for name := range c.Cabinets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigManager reads and writes the JSON config file through viper
type ConfigManager struct {
	v    *viper.Viper
	path string
}

func NewConfigManager() (*ConfigManager, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigManagerAt(path)
}

// Creates a manager bound to an explicit file path
func NewConfigManagerAt(path string) (*ConfigManager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}

	m := &ConfigManager{path: path}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func getConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnv)); p != "" {
		return p, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", ConfigDirName, ConfigFileName), nil
}

func (m *ConfigManager) Path() string {
	return m.path
}

func (m *ConfigManager) reload() error {
	v := viper.New()
	v.SetConfigFile(m.path)
	v.SetConfigType("json")

	info, err := os.Stat(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("error reading config file: %w", err)
	case info.Size() > 0:
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	m.v = v
	return nil
}

// Decodes and validates the whole file
func (m *ConfigManager) LoadConfig() (*Config, error) {
	var cfg Config
	if err := m.v.UnmarshalKey(cabinetsKey, &cfg.Cabinets); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Cabinets == nil {
		cfg.Cabinets = map[string]CabinetConfig{}
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", describeValidation(err))
	}
	return &cfg, nil
}

func (m *ConfigManager) SetValue(key, value string) error {
	key, err := checkKey(key, 3)
	if err != nil {
		return err
	}
	m.v.Set(key, value)
	return m.save(m.v.AllSettings())
}

func (m *ConfigManager) GetValue(key string) (any, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || !m.v.IsSet(key) {
		return nil, false
	}
	return m.v.Get(key), true
}

// Removes key (and anything nested below it). Reports false when it was not set.
func (m *ConfigManager) DeleteValue(key string) (bool, error) {
	key, err := checkKey(key, 2)
	if err != nil {
		return false, err
	}

	settings := m.v.AllSettings()
	if !deleteNested(settings, strings.Split(key, ".")) {
		return false, nil
	}
	if err := m.save(settings); err != nil {
		return false, err
	}
	return true, nil
}

func (m *ConfigManager) GetAllSettings() map[string]any {
	return m.v.AllSettings()
}

// Keys must address something inside a cabinet, e.g. cabinets.docs.type.
// Deletes may also drop a whole cabinet.
func checkKey(key string, minParts int) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	parts := strings.Split(key, ".")
	if len(parts) < minParts || parts[0] != cabinetsKey {
		return "", fmt.Errorf("invalid config key format: %q. Use 'cabinets.<name>.type' or 'cabinets.<name>.config.<field>'", key)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid config key format: %q", key)
		}
	}
	return key, nil
}

func deleteNested(m map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	if len(path) == 1 {
		if _, ok := m[path[0]]; !ok {
			return false
		}
		delete(m, path[0])
		return true
	}

	child, ok := m[path[0]].(map[string]any)
	if !ok {
		return false
	}
	if !deleteNested(child, path[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(m, path[0])
	}
	return true
}

// Writes settings to disk and reloads so later reads see exactly what was persisted
func (m *ConfigManager) save(settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	fresh := viper.New()
	fresh.SetConfigType("json")
	if err := fresh.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := fresh.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return m.reload()
}
