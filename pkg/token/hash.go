// Package token provides SyncMesh key and token utilities.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashKey computes the storable hash of an API key.
//
// The returned value is the hash prefix plus the hex-encoded SHA-256 of
// the key. Only hashes are ever persisted or configured server-side.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return PrefixKeyHash + hex.EncodeToString(h[:])
}

// VerifyKey verifies an API key against a stored hash.
//
// Uses constant-time comparison to prevent timing attacks. The stored
// hash is accepted with or without the hash prefix.
func VerifyKey(key, storedHash string) bool {
	expected := strings.TrimPrefix(storedHash, PrefixKeyHash)
	h := sha256.Sum256([]byte(key))
	actual := hex.EncodeToString(h[:])
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}
