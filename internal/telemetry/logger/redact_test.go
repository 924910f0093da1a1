package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRedactSensitive_APIKeyValue(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Log an API key (should be masked)
	apiKey := "smak_ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklm"
	l.Info("client configured", "endpoint_key", apiKey)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	val, ok := logEntry["endpoint_key"].(string)
	if !ok {
		t.Fatal("Expected endpoint_key field in log")
	}

	if val == apiKey {
		t.Errorf("API key should be redacted, got original value: %s", val)
	}

	// Should contain the prefix and partial mask
	if val != "smak_ABCD****" {
		t.Errorf("API key mask format incorrect, got: %s", val)
	}
}

func TestRedactSensitive_ContextToken(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Log a causal context token (should be masked)
	ctxToken := "smctx_ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklm"
	l.Info("snapshot fetched", "causal", ctxToken)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	val, ok := logEntry["causal"].(string)
	if !ok {
		t.Fatal("Expected causal field in log")
	}

	if val == ctxToken {
		t.Error("Context token should be redacted, got original value")
	}

	if val != "smctx_ABCD****" {
		t.Errorf("Context token mask format incorrect, got: %s", val)
	}
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Log with sensitive key names (should be redacted regardless of value)
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"password", "mysecret123", "***REDACTED***"},
		{"cache_passphrase", "hunter2", "***REDACTED***"},
		{"api_key", "some-key-value", "***REDACTED***"},
		{"auth_token", "bearer-xyz", "***REDACTED***"},
		{"credential", "cred123", "***REDACTED***"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", tt.key, tt.value)

			var logEntry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}

			val, ok := logEntry[tt.key].(string)
			if !ok {
				t.Fatalf("Expected %s field in log", tt.key)
			}

			if val != tt.expected {
				t.Errorf("Key %q should be redacted to %q, got %q", tt.key, tt.expected, val)
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Normal values should not be redacted
	l.Info("datatype fetched", "bucket", "profiles", "record", "user-42")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if bucket, ok := logEntry["bucket"].(string); !ok || bucket != "profiles" {
		t.Errorf("Normal bucket should not be redacted, got: %v", logEntry["bucket"])
	}
	if record, ok := logEntry["record"].(string); !ok || record != "user-42" {
		t.Errorf("Normal record should not be redacted, got: %v", logEntry["record"])
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "api key",
			input:    "smak_ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklm",
			expected: "smak_ABCD****",
		},
		{
			name:     "context token",
			input:    "smctx_ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklm",
			expected: "smctx_ABCD****",
		},
		{
			name:     "short key",
			input:    "smak_AB",
			expected: "smak_****",
		},
		{
			name:     "normal value",
			input:    "normalvalue123",
			expected: "normalvalue123",
		},
		{
			name:     "bucket name (not sensitive)",
			input:    "profiles-east",
			expected: "profiles-east",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RedactString(tt.input)
			if result != tt.expected {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"passphrase", true},
		{"cache_passphrase", true},
		{"PASSWORD", true},
		{"secret", true},
		{"api_secret", true},
		{"token", true},
		{"context_token", true},
		{"key", true},
		{"api_key", true},
		{"credential", true},
		{"auth", true},
		{"bearer", true},
		{"username", false},
		{"bucket", false},
		{"request_id", false},
		{"data", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			result := IsSensitiveKey(tt.key)
			if result != tt.sensitive {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, result, tt.sensitive)
			}
		})
	}
}

func TestIsSensitiveValue(t *testing.T) {
	tests := []struct {
		value     string
		sensitive bool
	}{
		{"smak_abc123", true},
		{"smctx_xyz789", true},
		{"smkh_deadbeef", true},
		{"profiles", false},
		{"normal_value", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			result := IsSensitiveValue(tt.value)
			if result != tt.sensitive {
				t.Errorf("IsSensitiveValue(%q) = %v, want %v", tt.value, result, tt.sensitive)
			}
		})
	}
}
