package benchmark

import (
	"testing"

	"github.com/yndnr/syncmesh-go/pkg/token"
)

// BenchmarkNewAPIKey benchmarks API key generation.
func BenchmarkNewAPIKey(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := token.NewAPIKey(); err != nil {
			b.Fatalf("NewAPIKey failed: %v", err)
		}
	}
}

// BenchmarkHashKey benchmarks key hashing for storage.
func BenchmarkHashKey(b *testing.B) {
	key, err := token.NewAPIKey()
	if err != nil {
		b.Fatalf("NewAPIKey failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		token.HashKey(key)
	}
}

// BenchmarkVerifyKey benchmarks hash verification.
func BenchmarkVerifyKey(b *testing.B) {
	key, err := token.NewAPIKey()
	if err != nil {
		b.Fatalf("NewAPIKey failed: %v", err)
	}
	hash := token.HashKey(key)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if !token.VerifyKey(key, hash) {
			b.Fatal("key did not verify")
		}
	}
}

// BenchmarkMask benchmarks masking for display.
func BenchmarkMask(b *testing.B) {
	key, err := token.NewAPIKey()
	if err != nil {
		b.Fatalf("NewAPIKey failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		token.Mask(key)
	}
}

// BenchmarkContextTokenRoundTrip benchmarks context encoding and decoding.
func BenchmarkContextTokenRoundTrip(b *testing.B) {
	payload := []byte(`{"elements":{"milk":["01J0000000000000000000000"]}}`)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		value := token.NewContextToken(payload)
		if _, ok := token.ParseContextToken(value); !ok {
			b.Fatal("context token did not parse")
		}
	}
}
