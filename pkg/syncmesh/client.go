package syncmesh

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/syncmesh-go/internal/cache"
	"github.com/yndnr/syncmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/syncmesh-go/internal/oplog"
	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/cmap"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// Client is a handle on a SyncMesh store. It is safe for concurrent use.
type Client struct {
	id        string
	transport Transport
	cache     *cache.Store
	journal   *oplog.Journal
	metrics   *metric.Registry
	log       logger.Logger

	tlsWatcher *tlsroots.Watcher
	buckets    *cmap.Map[string, *Bucket]

	closeOnce sync.Once
	closeErr  error
}

// New builds a client from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config, opts ...Option) (*Client, error) {
	// 1. Validate the configuration
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		id:      ulid.Make().String(),
		buckets: cmap.New[string, *Bucket](),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return nil, datatype.ErrInvalidConfig.WithCause(err)
		}
		c.log = log
	}
	c.log = c.log.With("client_id", c.id)

	// 2. Build the HTTP transport unless one was injected
	if c.transport == nil {
		tlsConfig, err := c.buildTLS(cfg)
		if err != nil {
			return nil, err
		}
		t, err := transport.New(transport.Config{
			Endpoints:    cfg.Endpoints,
			APIKey:       cfg.APIKey,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
			TLS:          tlsConfig,
			Metrics:      c.metrics,
		})
		if err != nil {
			c.stopTLSWatcher()
			return nil, err
		}
		c.transport = t
	}

	// 3. Open the snapshot cache when configured
	if cfg.Cache.Dir != "" {
		store, err := cache.Open(cache.Config{
			Dir: cfg.Cache.Dir,
			TTL: cfg.Cache.TTL,
			Encryption: cache.EncryptionConfig{
				Passphrase: []byte(cfg.Cache.Passphrase),
				Algorithm:  cfg.Cache.Algorithm,
			},
			Logger:  c.log,
			Metrics: c.metrics,
		})
		if err != nil {
			c.transport.Close()
			c.stopTLSWatcher()
			return nil, err
		}
		c.cache = store
	}

	// 4. Open the operation journal when configured
	if cfg.Journal.Dir != "" {
		journal, err := oplog.Open(oplog.Config{
			Dir:     cfg.Journal.Dir,
			Logger:  c.log,
			Metrics: c.metrics,
		})
		if err != nil {
			if c.cache != nil {
				c.cache.Close()
			}
			c.transport.Close()
			c.stopTLSWatcher()
			return nil, err
		}
		c.journal = journal
	}

	c.log.Info("syncmesh client ready",
		"endpoints", len(cfg.Endpoints),
		"cache", c.cache != nil,
		"journal", c.journal != nil,
	)
	return c, nil
}

// buildTLS assembles the transport TLS configuration: custom roots from
// the CA file/dir, and a hot-reloading client certificate when one is
// configured. Returns nil when the TLS section is empty, which keeps
// plain http endpoints free of TLS setup.
func (c *Client) buildTLS(cfg *Config) (*tls.Config, error) {
	t := cfg.TLS
	if t.CAFile == "" && t.CADir == "" && t.CertFile == "" {
		return nil, nil
	}

	pool, err := tlsroots.NewPool()
	if err != nil {
		return nil, datatype.ErrInvalidConfig.WithCause(err)
	}
	if t.CAFile != "" {
		if err := pool.AddCertFile(t.CAFile); err != nil {
			return nil, datatype.ErrInvalidConfig.WithCause(err)
		}
	}
	if t.CADir != "" {
		if err := pool.AddCertDir(t.CADir); err != nil {
			return nil, datatype.ErrInvalidConfig.WithCause(err)
		}
	}

	tlsConfig := pool.TLSConfig()
	if t.CertFile != "" {
		watcher, err := tlsroots.NewWatcher(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, datatype.ErrInvalidConfig.WithCause(err)
		}
		if err := watcher.Start(); err != nil {
			return nil, datatype.ErrInvalidConfig.WithCause(err)
		}
		tlsConfig.GetClientCertificate = watcher.GetClientCertificate
		c.tlsWatcher = watcher
	}
	return tlsConfig, nil
}

func (c *Client) stopTLSWatcher() {
	if c.tlsWatcher != nil {
		c.tlsWatcher.Stop()
		c.tlsWatcher = nil
	}
}

// BucketType returns a handle on the named bucket type.
func (c *Client) BucketType(name string) *BucketType {
	return &BucketType{client: c, name: name, err: checkName("bucket type", name)}
}

// Bucket returns a handle on a bucket of the default type.
func (c *Client) Bucket(name string) *Bucket {
	return c.BucketType(DefaultBucketType).Bucket(name)
}

// Ping checks store availability.
func (c *Client) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}

// Pending returns the number of journaled operations awaiting delivery.
func (c *Client) Pending() int {
	if c.journal == nil {
		return 0
	}
	return c.journal.Pending()
}

// Replay delivers journaled operations to the store in append order. It
// stops at the first availability failure, leaving the rest queued for a
// later attempt; operations the store rejects outright are logged and
// dropped. Returns the number of operations that left the journal.
func (c *Client) Replay(ctx context.Context) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	return c.journal.Replay(ctx, c.deliver)
}

func (c *Client) deliver(ctx context.Context, rec *oplog.Record) error {
	_, err := c.transport.Update(ctx, &transport.UpdateRequest{
		BucketType: rec.BucketType,
		Bucket:     rec.Bucket,
		Key:        rec.Key,
		TypeName:   rec.TypeName,
		Op:         rec.Op,
		Context:    rec.Context,
	})
	if err == nil {
		return nil
	}
	if replayStops(err) {
		return err
	}

	// The store rejected the operation itself; resending the same delta
	// can never succeed, so it leaves the journal here.
	c.log.Warn("store rejected journaled operation, dropping it",
		"seq", rec.Seq,
		"bucket", rec.Bucket,
		"key", rec.Key,
		"error", err,
	)
	return nil
}

// replayStops reports whether a delivery failure should pause the replay
// instead of dropping the record. Availability and throttle failures are
// worth retrying later; so are server-side failures, where the commit
// state is unknown.
func replayStops(err error) bool {
	return errors.Is(err, datatype.ErrUnavailable) ||
		errors.Is(err, datatype.ErrRateLimited) ||
		errors.Is(err, datatype.ErrServerError) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Close releases the transport, the cache, and the journal. It is safe to
// call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.journal != nil {
			errs = append(errs, c.journal.Close())
		}
		if c.cache != nil {
			errs = append(errs, c.cache.Close())
		}
		errs = append(errs, c.transport.Close())
		c.stopTLSWatcher()
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// cachePut refreshes the cached snapshot for a datatype, best effort.
func (c *Client) cachePut(bucketType, bucket, key string, snap *transport.Snapshot) {
	if c.cache == nil || snap == nil {
		return
	}
	err := c.cache.Put(bucketType, bucket, key, cache.Entry{
		Type:    snap.Type,
		Value:   snap.Value,
		Context: snap.Context,
	})
	if err != nil {
		c.log.Debug("snapshot cache refresh failed",
			"bucket", bucket,
			"key", key,
			"error", err,
		)
	}
}

// cacheGet returns the cached snapshot for a datatype, if any.
func (c *Client) cacheGet(bucketType, bucket, key string) (*transport.Snapshot, bool) {
	if c.cache == nil {
		return nil, false
	}
	entry, err := c.cache.Get(bucketType, bucket, key)
	if err != nil {
		return nil, false
	}
	return &transport.Snapshot{
		Type:    entry.Type,
		Value:   entry.Value,
		Context: entry.Context,
	}, true
}

// cacheEvict drops the cached snapshot for a datatype, best effort.
func (c *Client) cacheEvict(bucketType, bucket, key string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Evict(bucketType, bucket, key); err != nil {
		c.log.Debug("snapshot cache evict failed",
			"bucket", bucket,
			"key", key,
			"error", err,
		)
	}
}
