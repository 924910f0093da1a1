package syncmesh

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
)

// Option adjusts client construction.
type Option func(*Client)

// WithTransport replaces the default HTTP transport. The client takes
// ownership and closes the transport on Close.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithMetrics registers the client's collectors with reg. Without this
// option the client records no metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = metric.NewRegistry(reg)
	}
}

// WithLogger routes client diagnostics through log instead of a logger
// built from the configuration's log section.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// UpdateOption adjusts a single update.
type UpdateOption func(*updateSettings)

type updateSettings struct {
	returnBody bool
}

// WithoutBody skips the store's committed-state reply. The instance is
// not refreshed and still reports Modified; treat it as spent and fetch
// anew before further edits, or the same delta ships twice.
func WithoutBody() UpdateOption {
	return func(s *updateSettings) {
		s.returnBody = false
	}
}
