package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/syncmesh-go/internal/oplog"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// benchRecord freezes a small set delta into a journal record.
func benchRecord(b *testing.B, key string) oplog.Record {
	b.Helper()

	s := datatype.NewSet()
	if err := s.Add("milk"); err != nil {
		b.Fatalf("Add failed: %v", err)
	}
	op, ok := s.ToOp()
	if !ok {
		b.Fatal("no delta staged")
	}
	rec, err := oplog.NewRecord("default", "todo", key, datatype.TypeNameSet, op, "")
	if err != nil {
		b.Fatalf("NewRecord failed: %v", err)
	}
	return rec
}

// BenchmarkJournalAppend benchmarks synced journal appends.
func BenchmarkJournalAppend(b *testing.B) {
	j, err := oplog.Open(oplog.Config{Dir: b.TempDir(), Logger: quietLogger(b)})
	if err != nil {
		b.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	rec := benchRecord(b, "cart")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := j.Append(rec); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

// BenchmarkJournalReadAll benchmarks scanning a backlog from disk.
func BenchmarkJournalReadAll(b *testing.B) {
	for _, count := range []int{100, 1000} {
		b.Run(fmt.Sprintf("records_%d", count), func(b *testing.B) {
			dir := b.TempDir()
			j, err := oplog.Open(oplog.Config{Dir: dir, Logger: quietLogger(b)})
			if err != nil {
				b.Fatalf("Open failed: %v", err)
			}
			for i := 0; i < count; i++ {
				if _, err := j.Append(benchRecord(b, fmt.Sprintf("key-%d", i))); err != nil {
					b.Fatalf("Append failed: %v", err)
				}
			}
			if err := j.Close(); err != nil {
				b.Fatalf("Close failed: %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				r, err := oplog.NewReader(dir)
				if err != nil {
					b.Fatalf("NewReader failed: %v", err)
				}
				recs, err := r.ReadAll()
				if err != nil {
					b.Fatalf("ReadAll failed: %v", err)
				}
				if len(recs) != count {
					b.Fatalf("read %d records, want %d", len(recs), count)
				}
				r.Close()
			}
		})
	}
}
