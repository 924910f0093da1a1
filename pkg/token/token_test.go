// Package token provides SyncMesh key and token utilities.
package token

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewAPIKey(t *testing.T) {
	key, err := NewAPIKey()
	if err != nil {
		t.Fatalf("NewAPIKey() error = %v", err)
	}

	// Should carry the key prefix
	if !strings.HasPrefix(key, PrefixAPIKey) {
		t.Errorf("NewAPIKey() = %q, want prefix %q", key, PrefixAPIKey)
	}

	// Body should be base64 RawURL encoded KeyLength bytes
	body := strings.TrimPrefix(key, PrefixAPIKey)
	decoded, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		t.Errorf("NewAPIKey() body is invalid base64: %v", err)
	}
	if len(decoded) != KeyLength {
		t.Errorf("NewAPIKey() decoded length = %d, want %d", len(decoded), KeyLength)
	}

	if !IsAPIKey(key) {
		t.Error("IsAPIKey() = false for generated key")
	}
}

func TestNewAPIKey_Uniqueness(t *testing.T) {
	keys := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewAPIKey()
		if err != nil {
			t.Fatalf("NewAPIKey() error = %v", err)
		}
		if keys[key] {
			t.Errorf("NewAPIKey() produced duplicate key: %s", key)
		}
		keys[key] = true
	}
}

func TestIsAPIKey(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid key", "smak_AbCdEfGh12345", true},
		{"bare prefix", "smak_", false},
		{"wrong prefix", "smtk_AbCdEfGh", false},
		{"context token", "smctx_AbCdEfGh", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAPIKey(tt.value); got != tt.want {
				t.Errorf("IsAPIKey(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestContextToken_RoundTrip(t *testing.T) {
	payload := []byte(`{"tags":["01ABC","01DEF"]}`)

	tok := NewContextToken(payload)
	if !strings.HasPrefix(tok, PrefixContext) {
		t.Errorf("NewContextToken() = %q, want prefix %q", tok, PrefixContext)
	}

	got, ok := ParseContextToken(tok)
	if !ok {
		t.Fatal("ParseContextToken() = false for minted token")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestParseContextToken_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"wrong prefix", "smak_AbCd"},
		{"invalid base64", "smctx_!!!"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseContextToken(tt.value); ok {
				t.Errorf("ParseContextToken(%q) = true, want false", tt.value)
			}
		})
	}
}

func TestHashKey(t *testing.T) {
	key := "smak_testkey12345"
	hash := HashKey(key)

	// Should carry the hash prefix
	if !strings.HasPrefix(hash, PrefixKeyHash) {
		t.Errorf("HashKey() = %q, want prefix %q", hash, PrefixKeyHash)
	}

	// Body should be 64 characters of lowercase hex (SHA-256)
	body := strings.TrimPrefix(hash, PrefixKeyHash)
	if len(body) != 64 {
		t.Errorf("HashKey() body length = %d, want 64", len(body))
	}
	if strings.ToLower(body) != body {
		t.Error("HashKey() should return lowercase hex")
	}

	// Same input should produce same output
	if hash != HashKey(key) {
		t.Error("HashKey() is not deterministic")
	}

	// Different inputs should produce different hashes
	if HashKey("smak_other") == hash {
		t.Error("HashKey() produced same hash for different keys")
	}
}

func TestVerifyKey(t *testing.T) {
	key := "smak_my-secret-key"
	hash := HashKey(key)

	// Should verify correctly
	if !VerifyKey(key, hash) {
		t.Error("VerifyKey() = false for correct key")
	}

	// Should accept the hash without its prefix
	if !VerifyKey(key, strings.TrimPrefix(hash, PrefixKeyHash)) {
		t.Error("VerifyKey() = false for bare hex hash")
	}

	// Should fail for wrong key
	if VerifyKey("smak_wrong-key", hash) {
		t.Error("VerifyKey() = true for wrong key")
	}

	// Should fail for wrong hash
	if VerifyKey(key, "wrong-hash") {
		t.Error("VerifyKey() = true for wrong hash")
	}

	// Empty key only matches its own hash
	if VerifyKey("", hash) {
		t.Error("VerifyKey() = true for empty key")
	}
	if !VerifyKey("", HashKey("")) {
		t.Error("VerifyKey() = false for empty key with matching hash")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"api key", "smak_AbCdEfGhIjKl", "smak_AbCd****"},
		{"context token", "smctx_XyZw12345", "smctx_XyZw****"},
		{"key hash", "smkh_deadbeef1234", "smkh_dead****"},
		{"short body", "smak_ab", "smak_****"},
		{"unprefixed secret", "hunter2hunter2", "****"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.value); got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// Benchmark tests
func BenchmarkNewAPIKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewAPIKey()
	}
}

func BenchmarkHashKey(b *testing.B) {
	key := "smak_benchmark-key-12345"
	for i := 0; i < b.N; i++ {
		HashKey(key)
	}
}

func BenchmarkVerifyKey(b *testing.B) {
	key := "smak_benchmark-key-12345"
	hash := HashKey(key)
	for i := 0; i < b.N; i++ {
		VerifyKey(key, hash)
	}
}
