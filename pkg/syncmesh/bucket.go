package syncmesh

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/syncmesh-go/internal/oplog"
	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

const (
	// DefaultBucketType is the bucket type used by Client.Bucket.
	DefaultBucketType = "default"

	// MaxNameLength is the maximum byte length of a bucket type, bucket,
	// or key name.
	MaxNameLength = 128
)

// checkName validates a bucket type, bucket, or key name. Names travel in
// URL paths and ring route keys, so "/" is reserved.
func checkName(what, name string) error {
	if name == "" {
		return datatype.ErrInvalidArgument.WithDetails(what + " name is empty")
	}
	if len(name) > MaxNameLength {
		return datatype.ErrInvalidArgument.WithDetails(fmt.Sprintf("%s name exceeds %d bytes", what, MaxNameLength))
	}
	if strings.Contains(name, "/") {
		return datatype.ErrInvalidArgument.WithDetails(what + ` name contains "/"`)
	}
	return nil
}

// BucketType is a cheap handle on a named bucket type.
type BucketType struct {
	client *Client
	name   string
	err    error
}

// Name returns the bucket type name.
func (bt *BucketType) Name() string {
	return bt.name
}

// Bucket returns a handle on a bucket of this type. Handles are cached
// per client, so repeated lookups of the same bucket are cheap.
func (bt *BucketType) Bucket(name string) *Bucket {
	if err := firstErr(bt.err, checkName("bucket", name)); err != nil {
		return &Bucket{client: bt.client, bucketType: bt.name, name: name, err: err}
	}

	key := bt.name + "/" + name
	if b, ok := bt.client.buckets.Get(key); ok {
		return b
	}
	b := &Bucket{client: bt.client, bucketType: bt.name, name: name}
	cached, _ := bt.client.buckets.GetOrSet(key, b)
	return cached
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Bucket is a cheap handle on a bucket. All datatype operations go
// through it.
type Bucket struct {
	client     *Client
	bucketType string
	name       string

	// err carries a name validation failure; operations surface it
	// instead of sending malformed addresses to the store.
	err error
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Type returns the bucket type name.
func (b *Bucket) Type() string {
	return b.bucketType
}

// Fetch retrieves the datatype stored under key. The concrete type comes
// from the store: the reported type name picks the registry factory and
// the instance is reset to the fetched snapshot and context. Missing keys
// fail with ErrKeyNotFound; first writes start from a fresh instance
// (datatype.NewSet and friends) instead.
func (b *Bucket) Fetch(ctx context.Context, key string) (datatype.Datatype, error) {
	// 1. Validate the address
	if err := firstErr(b.err, checkName("key", key)); err != nil {
		return nil, err
	}

	// 2. Read the snapshot, falling back to the cache when unreachable
	snap, err := b.fetchSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}

	// 3. Reify: registry factory by reported type, then install the state
	dt, err := datatype.New(snap.Type)
	if err != nil {
		return nil, err
	}
	if err := dt.Reset(snap.Value, datatype.Context(snap.Context)); err != nil {
		return nil, err
	}
	return dt, nil
}

// FetchSet fetches key and asserts it holds a set.
func (b *Bucket) FetchSet(ctx context.Context, key string) (*datatype.Set, error) {
	dt, err := b.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	set, ok := dt.(*datatype.Set)
	if !ok {
		return nil, typeMismatch(key, datatype.TypeNameSet, dt)
	}
	return set, nil
}

// FetchCounter fetches key and asserts it holds a counter.
func (b *Bucket) FetchCounter(ctx context.Context, key string) (*datatype.Counter, error) {
	dt, err := b.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	counter, ok := dt.(*datatype.Counter)
	if !ok {
		return nil, typeMismatch(key, datatype.TypeNameCounter, dt)
	}
	return counter, nil
}

// FetchMap fetches key and asserts it holds a map.
func (b *Bucket) FetchMap(ctx context.Context, key string) (*datatype.Map, error) {
	dt, err := b.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	m, ok := dt.(*datatype.Map)
	if !ok {
		return nil, typeMismatch(key, datatype.TypeNameMap, dt)
	}
	return m, nil
}

func typeMismatch(key, want string, got datatype.Datatype) error {
	return datatype.ErrUnexpectedDatatype.WithDetails(
		fmt.Sprintf("%s holds a %s, not a %s", key, got.TypeName(), want),
	)
}

// Update ships the staged delta of dt and, unless WithoutBody is given,
// refreshes the instance from the store's committed state. An instance
// with nothing staged is a no-op. When the store is unreachable and a
// journal is configured, the delta is queued on disk and Update fails
// with ErrOperationQueued; the instance keeps its staged state and must
// be fetched anew before further edits.
func (b *Bucket) Update(ctx context.Context, key string, dt datatype.Datatype, opts ...UpdateOption) error {
	// 1. Validate the address and instance
	if err := firstErr(b.err, checkName("key", key)); err != nil {
		return err
	}
	if dt == nil {
		return datatype.ErrInvalidArgument.WithDetails("datatype is nil")
	}

	settings := updateSettings{returnBody: true}
	for _, opt := range opts {
		opt(&settings)
	}

	// 2. Extract the staged delta
	op, ok := dt.ToOp()
	if !ok {
		return nil
	}

	// 3. Send it with the causal context it was staged against
	snap, err := b.client.transport.Update(ctx, &transport.UpdateRequest{
		BucketType: b.bucketType,
		Bucket:     b.name,
		Key:        key,
		TypeName:   dt.TypeName(),
		Op:         op,
		Context:    string(dt.Context()),
		ReturnBody: settings.returnBody,
	})
	if err != nil {
		return b.queueOrFail(key, dt, op, err)
	}

	// 4. Refresh the instance from the committed state
	if snap != nil {
		if err := dt.Reset(snap.Value, datatype.Context(snap.Context)); err != nil {
			return err
		}
		b.client.cachePut(b.bucketType, b.name, key, snap)
	}
	return nil
}

// queueOrFail journals an undeliverable delta when a journal is
// configured, converting the availability failure into
// ErrOperationQueued. All other failures pass through and leave the
// instance Dirty for a direct retry.
func (b *Bucket) queueOrFail(key string, dt datatype.Datatype, op datatype.Op, cause error) error {
	if b.client.journal == nil || !errors.Is(cause, datatype.ErrUnavailable) {
		return cause
	}

	rec, err := oplog.NewRecord(b.bucketType, b.name, key, dt.TypeName(), op, string(dt.Context()))
	if err != nil {
		return cause
	}
	if _, err := b.client.journal.Append(rec); err != nil {
		b.client.log.Warn("journaling undeliverable operation failed",
			"bucket", b.name,
			"key", key,
			"error", err,
		)
		return cause
	}
	return datatype.ErrOperationQueued
}

// Delete removes the whole datatype under key and drops its cached
// snapshot.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := firstErr(b.err, checkName("key", key)); err != nil {
		return err
	}

	err := b.client.transport.Delete(ctx, &transport.DeleteRequest{
		BucketType: b.bucketType,
		Bucket:     b.name,
		Key:        key,
	})
	if err != nil {
		return err
	}

	b.client.cacheEvict(b.bucketType, b.name, key)
	return nil
}

// fetchSnapshot reads the snapshot from the store. A successful read
// refreshes the cache; an availability failure falls back to the last
// cached snapshot, if one exists (stale-on-error).
func (b *Bucket) fetchSnapshot(ctx context.Context, key string) (*transport.Snapshot, error) {
	snap, err := b.client.transport.Fetch(ctx, &transport.FetchRequest{
		BucketType: b.bucketType,
		Bucket:     b.name,
		Key:        key,
	})
	if err == nil {
		b.client.cachePut(b.bucketType, b.name, key, snap)
		return snap, nil
	}

	if errors.Is(err, datatype.ErrUnavailable) {
		if cached, ok := b.client.cacheGet(b.bucketType, b.name, key); ok {
			b.client.log.Warn("store unreachable, serving cached snapshot",
				"bucket", b.name,
				"key", key,
			)
			return cached, nil
		}
	}
	return nil, err
}
