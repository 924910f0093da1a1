package syncmesh

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// quietLogger suppresses client output during tests.
func quietLogger(tb testing.TB) logger.Logger {
	tb.Helper()
	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if err != nil {
		tb.Fatalf("logger.New failed: %v", err)
	}
	return l
}

// fakeTransport scripts store behavior and records every request.
type fakeTransport struct {
	mu      sync.Mutex
	fetches []*transport.FetchRequest
	updates []*transport.UpdateRequest
	deletes []*transport.DeleteRequest
	pings   int
	closes  int

	fetchFn  func(*transport.FetchRequest) (*transport.Snapshot, error)
	updateFn func(*transport.UpdateRequest) (*transport.Snapshot, error)
	deleteFn func(*transport.DeleteRequest) error
	pingErr  error
}

func (f *fakeTransport) Fetch(_ context.Context, req *transport.FetchRequest) (*transport.Snapshot, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, req)
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return nil, datatype.ErrKeyNotFound
	}
	return fn(req)
}

func (f *fakeTransport) Update(_ context.Context, req *transport.UpdateRequest) (*transport.Snapshot, error) {
	f.mu.Lock()
	f.updates = append(f.updates, req)
	fn := f.updateFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(req)
}

func (f *fakeTransport) Delete(_ context.Context, req *transport.DeleteRequest) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, req)
	fn := f.deleteFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(req)
}

func (f *fakeTransport) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeTransport) lastUpdate() *transport.UpdateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1]
}

// setSnapshot scripts a store holding a set.
func setSnapshot(elements ...string) *transport.Snapshot {
	value := make([]any, len(elements))
	for i, el := range elements {
		value[i] = el
	}
	return &transport.Snapshot{Type: "set", Value: value, Context: "smctx_AAEC"}
}

func newTestClient(t *testing.T, cfg *Config, ft *fakeTransport) *Client {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c, err := New(cfg, WithTransport(ft), WithLogger(quietLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{})
	if !errors.Is(err, datatype.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestNew_BuildsHTTPTransport(t *testing.T) {
	c, err := New(nil, WithLogger(quietLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.transport == nil {
		t.Fatal("no transport built")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestClient_Fetch_Reifies(t *testing.T) {
	ft := &fakeTransport{
		fetchFn: func(*transport.FetchRequest) (*transport.Snapshot, error) {
			return setSnapshot("bread", "milk"), nil
		},
	}
	c := newTestClient(t, nil, ft)

	dt, err := c.Bucket("carts").Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	set, ok := dt.(*datatype.Set)
	if !ok {
		t.Fatalf("Fetch returned %T, want *datatype.Set", dt)
	}
	if !set.Contains("bread") || !set.Contains("milk") || set.Len() != 2 {
		t.Fatalf("elements = %v", set.Elements())
	}
	if string(set.Context()) != "smctx_AAEC" {
		t.Fatalf("context = %q", set.Context())
	}

	req := ft.fetches[0]
	if req.BucketType != DefaultBucketType || req.Bucket != "carts" || req.Key != "alice" {
		t.Fatalf("request = %+v", req)
	}
}

func TestClient_Fetch_KeyNotFound(t *testing.T) {
	c := newTestClient(t, nil, &fakeTransport{})

	_, err := c.Bucket("carts").Fetch(context.Background(), "absent")
	if !errors.Is(err, datatype.ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestClient_Fetch_UnknownType(t *testing.T) {
	ft := &fakeTransport{
		fetchFn: func(*transport.FetchRequest) (*transport.Snapshot, error) {
			return &transport.Snapshot{Type: "hyperloglog", Value: nil}, nil
		},
	}
	c := newTestClient(t, nil, ft)

	_, err := c.Bucket("carts").Fetch(context.Background(), "alice")
	if !errors.Is(err, datatype.ErrUnknownDatatype) {
		t.Fatalf("err = %v, want ErrUnknownDatatype", err)
	}
}

func TestClient_TypedFetch(t *testing.T) {
	ft := &fakeTransport{
		fetchFn: func(*transport.FetchRequest) (*transport.Snapshot, error) {
			return setSnapshot("bread"), nil
		},
	}
	c := newTestClient(t, nil, ft)
	bucket := c.Bucket("carts")

	set, err := bucket.FetchSet(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FetchSet: %v", err)
	}
	if !set.Contains("bread") {
		t.Fatalf("elements = %v", set.Elements())
	}

	// The same key as a counter is a type mismatch.
	_, err = bucket.FetchCounter(context.Background(), "alice")
	if !errors.Is(err, datatype.ErrUnexpectedDatatype) {
		t.Fatalf("FetchCounter err = %v, want ErrUnexpectedDatatype", err)
	}
	_, err = bucket.FetchMap(context.Background(), "alice")
	if !errors.Is(err, datatype.ErrUnexpectedDatatype) {
		t.Fatalf("FetchMap err = %v, want ErrUnexpectedDatatype", err)
	}
}

func TestClient_Update_NothingStaged(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, nil, ft)

	if err := c.Bucket("carts").Update(context.Background(), "alice", datatype.NewSet()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ft.updateCount() != 0 {
		t.Fatal("no-op update hit the transport")
	}
}

func TestClient_Update_SendsDeltaAndRefreshes(t *testing.T) {
	ft := &fakeTransport{
		updateFn: func(*transport.UpdateRequest) (*transport.Snapshot, error) {
			return setSnapshot("bread", "milk"), nil
		},
	}
	c := newTestClient(t, nil, ft)

	set := datatype.NewSet()
	if err := set.Add("milk"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := c.Bucket("carts").Update(context.Background(), "alice", set); err != nil {
		t.Fatalf("Update: %v", err)
	}

	req := ft.lastUpdate()
	if req.TypeName != "set" || !req.ReturnBody {
		t.Fatalf("request = %+v", req)
	}
	op, ok := req.Op.(*datatype.SetOp)
	if !ok || len(op.Adds) != 1 || op.Adds[0] != "milk" {
		t.Fatalf("op = %#v", req.Op)
	}

	// The committed state replaced the staged one.
	if set.Modified() {
		t.Fatal("instance still modified after refresh")
	}
	if !set.Contains("milk") || !set.Contains("bread") {
		t.Fatalf("elements = %v", set.Elements())
	}
	if string(set.Context()) != "smctx_AAEC" {
		t.Fatalf("context = %q", set.Context())
	}
}

func TestClient_Update_WithoutBody(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, nil, ft)

	set := datatype.NewSet()
	set.Add("milk")

	if err := c.Bucket("carts").Update(context.Background(), "alice", set, WithoutBody()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if req := ft.lastUpdate(); req.ReturnBody {
		t.Fatal("ReturnBody sent despite WithoutBody")
	}
	// Without a body there is nothing to refresh from.
	if !set.Modified() {
		t.Fatal("instance unexpectedly refreshed")
	}
}

func TestClient_Update_FailureLeavesDirty(t *testing.T) {
	ft := &fakeTransport{
		updateFn: func(*transport.UpdateRequest) (*transport.Snapshot, error) {
			return nil, datatype.ErrServerError
		},
	}
	c := newTestClient(t, nil, ft)

	set := datatype.NewSet()
	set.Add("milk")

	err := c.Bucket("carts").Update(context.Background(), "alice", set)
	if !errors.Is(err, datatype.ErrServerError) {
		t.Fatalf("err = %v, want ErrServerError", err)
	}
	if !set.Modified() {
		t.Fatal("staged delta lost on failure")
	}
}

func TestClient_Update_NilDatatype(t *testing.T) {
	c := newTestClient(t, nil, &fakeTransport{})

	err := c.Bucket("carts").Update(context.Background(), "alice", nil)
	if !errors.Is(err, datatype.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestClient_Delete(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, nil, ft)

	if err := c.Bucket("carts").Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(ft.deletes) != 1 || ft.deletes[0].Key != "alice" {
		t.Fatalf("deletes = %+v", ft.deletes)
	}
}

func TestClient_Ping(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, nil, ft)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if ft.pings != 1 {
		t.Fatalf("pings = %d, want 1", ft.pings)
	}
}

func TestClient_NameValidation(t *testing.T) {
	c := newTestClient(t, nil, &fakeTransport{})
	ctx := context.Background()

	cases := []struct {
		name   string
		bucket *Bucket
		key    string
	}{
		{"empty bucket", c.Bucket(""), "k"},
		{"slash bucket", c.Bucket("a/b"), "k"},
		{"long bucket", c.Bucket(strings.Repeat("x", MaxNameLength+1)), "k"},
		{"empty type", c.BucketType("").Bucket("b"), "k"},
		{"empty key", c.Bucket("carts"), ""},
		{"slash key", c.Bucket("carts"), "a/b"},
	}
	for _, tc := range cases {
		if _, err := tc.bucket.Fetch(ctx, tc.key); !errors.Is(err, datatype.ErrInvalidArgument) {
			t.Errorf("%s: Fetch err = %v, want ErrInvalidArgument", tc.name, err)
		}
		if err := tc.bucket.Update(ctx, tc.key, datatype.NewCounter()); !errors.Is(err, datatype.ErrInvalidArgument) {
			t.Errorf("%s: Update err = %v, want ErrInvalidArgument", tc.name, err)
		}
		if err := tc.bucket.Delete(ctx, tc.key); !errors.Is(err, datatype.ErrInvalidArgument) {
			t.Errorf("%s: Delete err = %v, want ErrInvalidArgument", tc.name, err)
		}
	}
}

func TestClient_BucketHandlesCached(t *testing.T) {
	c := newTestClient(t, nil, &fakeTransport{})

	b1 := c.Bucket("carts")
	b2 := c.Bucket("carts")
	if b1 != b2 {
		t.Fatal("same bucket name produced distinct handles")
	}

	b3 := c.BucketType("sets").Bucket("carts")
	if b3 == b1 {
		t.Fatal("bucket handle shared across types")
	}
	if b3.Type() != "sets" || b3.Name() != "carts" {
		t.Fatalf("handle = %s/%s", b3.Type(), b3.Name())
	}
}

func TestClient_Close_Idempotent(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(nil, WithTransport(ft), WithLogger(quietLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close 1: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close 2: %v", err)
	}
	if ft.closes != 1 {
		t.Fatalf("transport closed %d times, want 1", ft.closes)
	}
}
