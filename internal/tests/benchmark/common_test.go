package benchmark

import (
	"fmt"
	"io"
	"testing"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
	"github.com/yndnr/syncmesh-go/pkg/syncmesh"
	"github.com/yndnr/syncmesh-go/pkg/syncmeshtest"
)

// ElementCounts defines the set sizes for benchmarking.
var ElementCounts = []int{10, 100, 1000}

// quietLogger silences diagnostics during benchmark runs.
func quietLogger(b *testing.B) logger.Logger {
	b.Helper()

	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if err != nil {
		b.Fatalf("logger.New failed: %v", err)
	}
	return l
}

// newBenchClient starts an in-process store replica and a client against it.
func newBenchClient(b *testing.B, mutate func(*syncmesh.Config)) (*syncmesh.Client, *syncmeshtest.Store) {
	b.Helper()

	store := syncmeshtest.NewStore()
	srv := syncmeshtest.NewServer(store)
	b.Cleanup(srv.Close)

	cfg := syncmesh.DefaultConfig()
	cfg.Endpoints = []string{srv.URL()}
	cfg.Log.Level = "error"
	if mutate != nil {
		mutate(cfg)
	}

	client, err := syncmesh.New(cfg)
	if err != nil {
		b.Fatalf("syncmesh.New failed: %v", err)
	}
	b.Cleanup(func() { client.Close() })
	return client, store
}

// stagedSet returns a fresh set with count staged adds.
func stagedSet(b *testing.B, count int) *datatype.Set {
	b.Helper()

	s := datatype.NewSet()
	for i := 0; i < count; i++ {
		if err := s.Add(fmt.Sprintf("element-%d", i)); err != nil {
			b.Fatalf("Add failed: %v", err)
		}
	}
	return s
}

// setSnapshot returns a raw snapshot value with count elements, shaped like
// a decoded store response.
func setSnapshot(count int) []any {
	elements := make([]any, count)
	for i := range elements {
		elements[i] = fmt.Sprintf("element-%d", i)
	}
	return elements
}

// runWithElementCounts runs a benchmark function at each element count.
func runWithElementCounts(b *testing.B, benchFn func(b *testing.B, count int)) {
	for _, count := range ElementCounts {
		b.Run(fmt.Sprintf("elements_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
