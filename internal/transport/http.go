package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/syncmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// Transport defaults.
const (
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for idempotent requests.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the base delay before the first retry.
	DefaultRetryBackoff = 100 * time.Millisecond

	// maxBackoff caps the exponential retry delay.
	maxBackoff = 5 * time.Second
)

// Config holds transport construction parameters.
type Config struct {
	// Endpoints are the store addresses: http://, https://, unix://, or a
	// bare host:port which defaults to http://.
	Endpoints []string

	// APIKey is sent as the X-API-Key header when non-empty.
	APIKey string

	// Timeout bounds a single request attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the retry budget for idempotent requests. Negative
	// disables retries; zero means DefaultMaxRetries.
	MaxRetries int

	// RetryBackoff is the base retry delay. Zero means DefaultRetryBackoff.
	RetryBackoff time.Duration

	// RateLimit throttles each endpoint to this many requests per second.
	// Zero disables client-side limiting.
	RateLimit float64

	// RateBurst is the limiter burst size. Zero derives it from RateLimit.
	RateBurst int

	// TLS is used for https:// endpoints. Nil means system roots.
	TLS *tls.Config

	// Metrics receives request instrumentation. Nil disables it.
	Metrics *metric.Registry
}

// Client is the HTTP implementation of the SyncMesh data API.
//
// It is safe for concurrent use.
type Client struct {
	endpoints  map[string]*endpoint
	ring       *Ring
	limiters   *limiterRegistry
	apiKey     string
	maxRetries int
	backoff    time.Duration
	metrics    *metric.Registry
	userAgent  string
}

// endpoint is one store address with its dedicated HTTP client. Unix socket
// endpoints need their own dialer, so the client is per-endpoint.
type endpoint struct {
	id      string
	baseURL string
	client  *http.Client
}

// New creates a transport client over the configured endpoints.
func New(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, datatype.ErrInvalidConfig.WithDetails("no endpoints configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	c := &Client{
		endpoints:  make(map[string]*endpoint, len(cfg.Endpoints)),
		ring:       NewRing(),
		limiters:   newLimiterRegistry(cfg.RateLimit, cfg.RateBurst),
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		backoff:    backoff,
		metrics:    cfg.Metrics,
		userAgent:  "syncmesh-go/" + buildinfo.Version,
	}

	for _, raw := range cfg.Endpoints {
		ep, err := newEndpoint(raw, timeout, cfg.TLS)
		if err != nil {
			return nil, err
		}
		if _, exists := c.endpoints[ep.id]; exists {
			continue
		}
		c.endpoints[ep.id] = ep
		c.ring.Add(ep.id)
	}
	return c, nil
}

// newEndpoint normalizes one endpoint address and builds its HTTP client.
func newEndpoint(raw string, timeout time.Duration, tlsConfig *tls.Config) (*endpoint, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return nil, datatype.ErrInvalidConfig.WithDetails("empty endpoint address")
	}

	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		if path == "" {
			return nil, datatype.ErrInvalidConfig.WithDetails("unix endpoint without socket path")
		}
		dialer := &net.Dialer{}
		return &endpoint{
			id: addr,
			// The host is a placeholder; the dialer ignores it and
			// connects to the socket path instead.
			baseURL: "http://unix",
			client: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						return dialer.DialContext(ctx, "unix", path)
					},
				},
			},
		}, nil
	}

	// Ensure the address has a scheme
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	addr = strings.TrimSuffix(addr, "/")

	client := &http.Client{Timeout: timeout}
	if strings.HasPrefix(addr, "https://") && tlsConfig != nil {
		client.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	return &endpoint{id: addr, baseURL: addr, client: client}, nil
}

// Fetch reads a datatype snapshot from the store.
func (c *Client) Fetch(ctx context.Context, req *FetchRequest) (*Snapshot, error) {
	path := datatypePath(req.BucketType, req.Bucket, req.Key)
	seq := c.ring.Sequence(routeKey(req.BucketType, req.Bucket, req.Key))

	var snap Snapshot
	err := c.run(ctx, "fetch", seq, true, func(ctx context.Context, ep *endpoint) error {
		snap = Snapshot{}
		_, err := c.do(ctx, ep, http.MethodGet, path, nil, &snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Update sends a staged delta to the store. The returned snapshot is nil
// when the store answers 204 No Content.
func (c *Client) Update(ctx context.Context, req *UpdateRequest) (*Snapshot, error) {
	body := updateBody{
		Type:       req.TypeName,
		Op:         req.Op,
		Context:    req.Context,
		ReturnBody: req.ReturnBody,
	}
	path := datatypePath(req.BucketType, req.Bucket, req.Key)
	seq := c.ring.Sequence(routeKey(req.BucketType, req.Bucket, req.Key))

	var snap *Snapshot
	err := c.run(ctx, "update", seq, false, func(ctx context.Context, ep *endpoint) error {
		snap = nil
		var out Snapshot
		status, err := c.do(ctx, ep, http.MethodPost, path, body, &out)
		if err != nil {
			return err
		}
		if status == http.StatusOK {
			snap = &out
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes a datatype from the store.
func (c *Client) Delete(ctx context.Context, req *DeleteRequest) error {
	path := datatypePath(req.BucketType, req.Bucket, req.Key)
	seq := c.ring.Sequence(routeKey(req.BucketType, req.Bucket, req.Key))

	return c.run(ctx, "delete", seq, false, func(ctx context.Context, ep *endpoint) error {
		_, err := c.do(ctx, ep, http.MethodDelete, path, nil, nil)
		return err
	})
}

// Ping checks store availability. It succeeds when any endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.run(ctx, "ping", c.ring.Endpoints(), true, func(ctx context.Context, ep *endpoint) error {
		var out struct {
			Status string `json:"status"`
		}
		if _, err := c.do(ctx, ep, http.MethodGet, "/v1/ping", nil, &out); err != nil {
			return err
		}
		if out.Status != "ok" {
			return datatype.ErrServerError.WithDetails("unexpected ping status: " + out.Status)
		}
		return nil
	})
}

// Endpoints returns the configured endpoint identifiers in sorted order.
func (c *Client) Endpoints() []string {
	return c.ring.Endpoints()
}

// Close releases idle connections held by the endpoint clients.
func (c *Client) Close() error {
	for _, ep := range c.endpoints {
		ep.client.CloseIdleConnections()
	}
	return nil
}

// run executes an operation with failover and, for idempotent requests,
// bounded retries. It records request metrics for the whole operation.
func (c *Client) run(ctx context.Context, method string, seq []string, idempotent bool, attempt func(context.Context, *endpoint) error) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveRequestDuration(method, time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = datatype.ErrorCode(err)
			if status == "" {
				status = "error"
			}
		}
		c.metrics.RecordRequest(method, status)
	}()

	if len(seq) == 0 {
		return datatype.ErrUnavailable.WithDetails("no endpoints configured")
	}

	retries := c.maxRetries
	if !idempotent {
		retries = 0
	}

	for attemptNo := 0; ; attemptNo++ {
		if attemptNo > 0 {
			if werr := c.sleepBackoff(ctx, attemptNo); werr != nil {
				return werr
			}
			c.metrics.IncRetry()
			logger.L(ctx).Debug("retrying request",
				"method", method,
				"attempt", attemptNo,
				"error", err,
			)
		}

		err = c.sweep(ctx, method, seq, idempotent, attempt)
		if err == nil || !retryable(err) || attemptNo >= retries {
			return err
		}
	}
}

// sweep tries the failover sequence once, moving to the next endpoint when
// failover is safe for the request.
func (c *Client) sweep(ctx context.Context, method string, seq []string, idempotent bool, attempt func(context.Context, *endpoint) error) error {
	var err error
	for i, id := range seq {
		err = attempt(ctx, c.endpoints[id])
		if err == nil {
			return nil
		}
		if i == len(seq)-1 || !failover(err, idempotent) {
			return err
		}
		logger.L(ctx).Warn("endpoint unavailable, failing over",
			"method", method,
			"endpoint", id,
			"error", err,
		)
	}
	return err
}

// do executes one request attempt against one endpoint.
func (c *Client) do(ctx context.Context, ep *endpoint, method, path string, body, target any) (int, error) {
	if err := c.limiters.wait(ctx, ep.id); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, datatype.ErrRateLimited.WithDetails("client-side limiter").WithCause(err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, datatype.ErrInvalidArgument.WithDetails("encoding request body").WithCause(err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.baseURL+path, bodyReader)
	if err != nil {
		return 0, datatype.ErrInvalidArgument.WithDetails("building request").WithCause(err)
	}

	req.Header.Set("X-Request-ID", ulid.Make().String())
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ep.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, datatype.ErrUnavailable.WithDetails(ep.id).WithCause(err)
	}
	return resp.StatusCode, decodeResponse(resp, target)
}

// decodeResponse parses a store response into the target, mapping error
// statuses onto client sentinels.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return datatype.ErrServerError.WithDetails("decoding response body").WithCause(err)
	}
	return nil
}

// sleepBackoff waits before the given retry using exponential backoff with
// jitter, so synchronized clients do not retry in lockstep.
func (c *Client) sleepBackoff(ctx context.Context, retry int) error {
	backoff := c.backoff << (retry - 1)
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	delay := backoff/2 + rand.N(backoff/2+1)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable reports whether an idempotent request may be reissued.
func retryable(err error) bool {
	return datatype.IsCode(err, datatype.ErrUnavailable.Code) ||
		datatype.IsCode(err, datatype.ErrServerError.Code) ||
		datatype.IsCode(err, datatype.ErrRateLimited.Code)
}

// failover reports whether trying the next endpoint is safe. Idempotent
// requests fail over on any availability error; mutations only when the
// connection was never established, because a delta that reached the store
// must not be applied twice.
func failover(err error, idempotent bool) bool {
	if !datatype.IsCode(err, datatype.ErrUnavailable.Code) {
		return false
	}
	if idempotent {
		return true
	}
	return dialFailure(err)
}

// dialFailure reports whether the request failed before it was written.
func dialFailure(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// datatypePath builds the data API path for a datatype address.
func datatypePath(bucketType, bucket, key string) string {
	return "/v1/buckets/" + url.PathEscape(bucketType) +
		"/" + url.PathEscape(bucket) +
		"/datatypes/" + url.PathEscape(key)
}

// routeKey is the ring key for a datatype address. Every replica of the
// client routes the same address to the same preferred endpoint, which
// keeps store-side caches warm.
func routeKey(bucketType, bucket, key string) string {
	return bucketType + "/" + bucket + "/" + key
}
