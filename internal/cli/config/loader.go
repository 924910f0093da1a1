package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/syncmesh-go/internal/infra/confloader"
)

// EnvPrefix is the prefix for environment overrides of CLI settings.
// SYNCMESH_CLI_DEFAULT_OUTPUT overrides default_output, and so on.
const EnvPrefix = "SYNCMESH_CLI_"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".syncmesh", "cli.yaml")
}

// Load reads the CLI configuration from path, falling back to defaults
// when the file does not exist. Environment overrides apply either way.
// An empty path means the default location.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()

	opts := []confloader.Option{confloader.WithEnvPrefix(EnvPrefix)}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat cli config: %w", err)
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cli config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return cfg, nil
}

// Save writes the CLI configuration to path, creating the directory when
// needed. An empty path means the default location. The file holds API
// keys, so it is written 0600.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cli config: %w", err)
	}
	return nil
}
