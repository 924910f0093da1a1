// Package token provides SyncMesh key and token utilities.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// Prefixes of the SyncMesh credential and token formats.
const (
	// PrefixAPIKey marks client API keys.
	PrefixAPIKey = "smak_"

	// PrefixKeyHash marks stored API key hashes.
	PrefixKeyHash = "smkh_"

	// PrefixContext marks causal context tokens minted by a store.
	PrefixContext = "smctx_"
)

// KeyLength is the API key entropy in bytes.
const KeyLength = 32

// NewAPIKey generates a cryptographically secure API key.
//
// The body is Base64 RawURL encoded for safe transmission in headers.
func NewAPIKey() (string, error) {
	bytes := make([]byte, KeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return PrefixAPIKey + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// IsAPIKey reports whether the value carries the API key prefix.
func IsAPIKey(value string) bool {
	return strings.HasPrefix(value, PrefixAPIKey) && len(value) > len(PrefixAPIKey)
}

// NewContextToken frames a server payload as a context token. The payload
// is opaque to clients; only the store that minted it interprets it.
func NewContextToken(payload []byte) string {
	return PrefixContext + base64.RawURLEncoding.EncodeToString(payload)
}

// ParseContextToken extracts the payload from a context token. Returns
// false when the value is not a well-formed context token.
func ParseContextToken(value string) ([]byte, bool) {
	body, ok := strings.CutPrefix(value, PrefixContext)
	if !ok {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Mask redacts a sensitive value for logging. Prefixed keys and tokens
// keep their prefix plus the first four body characters; everything else
// is masked entirely.
func Mask(value string) string {
	for _, prefix := range []string{PrefixAPIKey, PrefixContext, PrefixKeyHash} {
		body, ok := strings.CutPrefix(value, prefix)
		if !ok {
			continue
		}
		if len(body) <= 4 {
			return prefix + "****"
		}
		return prefix + body[:4] + "****"
	}
	if value == "" {
		return ""
	}
	return "****"
}
