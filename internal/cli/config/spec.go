package config

import "sort"

// CLIConfig is the persisted state of syncmesh-cli.
type CLIConfig struct {
	// DefaultOutput is the output format used when --output is not given:
	// table, json, or yaml.
	DefaultOutput string `koanf:"default_output" yaml:"default_output"`

	// CurrentProfile names the profile used when --profile is not given.
	CurrentProfile string `koanf:"current_profile" yaml:"current_profile,omitempty"`

	// Profiles are the saved store connections, keyed by name.
	Profiles map[string]Profile `koanf:"profiles" yaml:"profiles,omitempty"`
}

// Profile is a saved store connection.
type Profile struct {
	Endpoints []string `koanf:"endpoints" yaml:"endpoints"`
	APIKey    string   `koanf:"api_key" yaml:"api_key,omitempty"`
}

// Default returns the configuration used when no file exists yet.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "table",
		Profiles:      make(map[string]Profile),
	}
}

// ProfileNames returns the saved profile names in sorted order.
func (c *CLIConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
