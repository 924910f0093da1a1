// Package token provides SyncMesh key and token utilities.
//
// This package implements cryptographically secure API key generation,
// key hashing for storage, and the framing of causal context tokens.
//
// API Key Format:
//
//   - Prefix: smak_ (5 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes
//   - Total: 48 characters
//
// Key Hash Format:
//
//   - Prefix: smkh_ (5 characters)
//   - Body: 64 characters of hex-encoded SHA-256 hash
//   - Total: 69 characters
//
// Context Token Format:
//
//   - Prefix: smctx_ (6 characters)
//   - Body: Base64 RawURL encoded server payload, length varies
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - SHA-256 hashing with constant-time comparison
//   - Keys are never stored, only hashes
package token
