package connection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yndnr/syncmesh-go/internal/cli/config"
	"github.com/yndnr/syncmesh-go/pkg/syncmesh"
)

// Overrides carries the per-invocation connection flags. A non-zero
// field wins over whatever the selected profile says.
type Overrides struct {
	// Profile selects a saved profile by name.
	Profile string

	// Endpoint replaces the profile's endpoint list with a single address.
	Endpoint string

	// APIKey replaces the profile's API key.
	APIKey string
}

// Manager resolves the active profile into a syncmesh client and shares
// it for the rest of the invocation. With no profile and no overrides
// the client connects to the default local store.
type Manager struct {
	cfg *config.CLIConfig
	ov  Overrides

	mu     sync.Mutex
	client *syncmesh.Client
}

// NewManager creates a manager over the loaded CLI configuration.
func NewManager(cfg *config.CLIConfig, ov Overrides) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{cfg: cfg, ov: ov}
}

// ProfileName returns the name of the selected profile, or "" when the
// invocation runs on overrides and defaults alone.
func (m *Manager) ProfileName() string {
	if m.ov.Profile != "" {
		return m.ov.Profile
	}
	return m.cfg.CurrentProfile
}

// Client returns the shared client, building it on first use.
func (m *Manager) Client() (*syncmesh.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	cc, err := m.resolve()
	if err != nil {
		return nil, err
	}

	client, err := syncmesh.New(cc)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	m.client = client
	return client, nil
}

// resolve builds the client configuration from the selected profile and
// the overrides on top of it.
func (m *Manager) resolve() (*syncmesh.Config, error) {
	cc := syncmesh.DefaultConfig()

	// Command output owns stdout; client diagnostics stay quiet unless
	// something is genuinely wrong.
	cc.Log.Level = "error"

	if name := m.ProfileName(); name != "" {
		profile, ok := m.cfg.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q (see: syncmesh-cli connect list)", name)
		}
		if len(profile.Endpoints) > 0 {
			cc.Endpoints = profile.Endpoints
		}
		if profile.APIKey != "" {
			cc.APIKey = profile.APIKey
		}
	}

	if m.ov.Endpoint != "" {
		cc.Endpoints = []string{m.ov.Endpoint}
	}
	if m.ov.APIKey != "" {
		cc.APIKey = m.ov.APIKey
	}
	return cc, nil
}

// Target describes where commands go, for status output.
func (m *Manager) Target() string {
	if m.ov.Endpoint != "" {
		return m.ov.Endpoint
	}
	if name := m.ProfileName(); name != "" {
		if profile, ok := m.cfg.Profiles[name]; ok && len(profile.Endpoints) > 0 {
			return fmt.Sprintf("%s (profile %s)", strings.Join(profile.Endpoints, ", "), name)
		}
		return fmt.Sprintf("profile %s", name)
	}
	return syncmesh.DefaultEndpoint
}

// Close releases the shared client. Safe to call when no client was
// ever built.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
