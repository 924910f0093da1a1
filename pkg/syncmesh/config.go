package syncmesh

import (
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/syncmesh-go/internal/cache"
	"github.com/yndnr/syncmesh-go/internal/infra/confloader"
	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
	"github.com/yndnr/syncmesh-go/pkg/token"
)

// DefaultEndpoint is the store address a zero configuration connects to.
const DefaultEndpoint = "http://localhost:5170"

// Config is the client configuration. The zero value is not usable; start
// from DefaultConfig or LoadConfig.
type Config struct {
	// Endpoints are the store addresses: http://, https://, unix://, or a
	// bare host:port which defaults to http://.
	Endpoints []string `koanf:"endpoints"`

	// APIKey authenticates requests (smak_ prefixed).
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single request attempt.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the retry budget for idempotent requests. Negative
	// disables retries.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the base delay before the first retry.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// RateLimit throttles each endpoint to this many requests per second.
	// Zero disables client-side limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the limiter burst size. Zero derives it from RateLimit.
	RateBurst int `koanf:"rate_burst"`

	TLS     TLSSection     `koanf:"tls"`
	Cache   CacheSection   `koanf:"cache"`
	Journal JournalSection `koanf:"journal"`
	Log     LogSection     `koanf:"log"`
}

// TLSSection configures https:// endpoints.
type TLSSection struct {
	// CAFile adds a PEM bundle to the trusted roots.
	CAFile string `koanf:"ca_file"`

	// CADir adds every certificate file in a directory to the trusted
	// roots.
	CADir string `koanf:"ca_dir"`

	// CertFile and KeyFile enable a client certificate, hot-reloaded when
	// the files change on disk. Both must be set together.
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// CacheSection configures the local snapshot cache. An empty Dir disables
// caching.
type CacheSection struct {
	Dir string `koanf:"dir"`

	// TTL expires cached snapshots. Zero keeps them until overwritten.
	TTL time.Duration `koanf:"ttl"`

	// Passphrase enables at-rest encryption of cached snapshots.
	Passphrase string `koanf:"passphrase"`

	// Algorithm selects the cache cipher: chacha20-poly1305 (the default
	// when empty), aes-gcm, or auto to pick by CPU support.
	Algorithm string `koanf:"algorithm"`
}

// JournalSection configures the offline operation journal. An empty Dir
// disables journaling.
type JournalSection struct {
	Dir string `koanf:"dir"`
}

// LogSection configures client diagnostics.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns a configuration for a local store with caching,
// journaling, and TLS disabled.
func DefaultConfig() *Config {
	return &Config{
		Endpoints:    []string{DefaultEndpoint},
		Timeout:      transport.DefaultTimeout,
		MaxRetries:   transport.DefaultMaxRetries,
		RetryBackoff: transport.DefaultRetryBackoff,
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds a validated Config from a YAML file plus SYNCMESH_
// environment overrides. An empty path loads from the environment alone.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(cfg); err != nil {
		return nil, datatype.ErrInvalidConfig.WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration and reports every violation in
// one error.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Endpoints) == 0 {
		problems = append(problems, "endpoints: at least one endpoint is required")
	}
	for i, ep := range c.Endpoints {
		if strings.TrimSpace(ep) == "" {
			problems = append(problems, fmt.Sprintf("endpoints[%d]: empty endpoint", i))
		}
	}
	if c.APIKey != "" && !token.IsAPIKey(c.APIKey) {
		problems = append(problems, "api_key: not a syncmesh api key")
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout: must not be negative")
	}
	if c.RetryBackoff < 0 {
		problems = append(problems, "retry_backoff: must not be negative")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate_limit: must not be negative")
	}
	if c.RateBurst < 0 {
		problems = append(problems, "rate_burst: must not be negative")
	}
	if (c.TLS.CertFile != "") != (c.TLS.KeyFile != "") {
		problems = append(problems, "tls: cert_file and key_file must be set together")
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "cache.ttl: must not be negative")
	}
	if c.Cache.Passphrase != "" && len(c.Cache.Passphrase) < cache.MinPassphraseLength {
		problems = append(problems, fmt.Sprintf("cache.passphrase: shorter than %d bytes", cache.MinPassphraseLength))
	}
	if c.Cache.Dir == "" && c.Cache.Passphrase != "" {
		problems = append(problems, "cache.passphrase: set without cache.dir")
	}

	if len(problems) > 0 {
		return datatype.ErrInvalidConfig.WithDetails(strings.Join(problems, "; "))
	}
	return nil
}

// Sanitize returns a copy with secrets masked for logging.
func (c *Config) Sanitize() *Config {
	out := *c
	out.Endpoints = append([]string(nil), c.Endpoints...)

	if out.APIKey != "" {
		out.APIKey = token.Mask(out.APIKey)
	}
	if out.Cache.Passphrase != "" {
		out.Cache.Passphrase = "****"
	}
	return &out
}
