// Package adaptive selects an AEAD cipher for at-rest encryption by
// hardware capability.
//
// AES-GCM runs on dedicated CPU instructions on amd64 and arm64 and is
// the faster choice there. ChaCha20-Poly1305 is constant time in plain
// software and wins everywhere else. New picks automatically,
// NewWithType pins a specific algorithm.
//
// Every cipher prepends a fresh random nonce to its ciphertext, so a
// sealed value is self-contained and safe to store as is.
package adaptive
