package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// BenchmarkClientUpdate benchmarks a full update round trip over HTTP.
func BenchmarkClientUpdate(b *testing.B) {
	client, _ := newBenchClient(b, nil)
	todo := client.Bucket("todo")
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		hits := datatype.NewCounter()
		hits.Increment(1)
		if err := todo.Update(ctx, "hits", hits); err != nil {
			b.Fatalf("Update failed: %v", err)
		}
	}
}

// BenchmarkClientFetch benchmarks fetch round trips at various set sizes.
func BenchmarkClientFetch(b *testing.B) {
	runWithElementCounts(b, func(b *testing.B, count int) {
		client, _ := newBenchClient(b, nil)
		todo := client.Bucket("todo")
		ctx := context.Background()

		seed := stagedSet(b, count)
		if err := todo.Update(ctx, "cart", seed); err != nil {
			b.Fatalf("seed Update failed: %v", err)
		}

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			s, err := todo.FetchSet(ctx, "cart")
			if err != nil {
				b.Fatalf("FetchSet failed: %v", err)
			}
			if s.Len() != count {
				b.Fatalf("fetched %d elements, want %d", s.Len(), count)
			}
		}
	})
}
