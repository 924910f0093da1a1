// Package cache stores fetched snapshots in a local Badger database so
// reads can fall back to recent data when every endpoint is unreachable.
//
// Entries are keyed dt/{bucket-type}/{bucket}/{key} and hold the snapshot
// value, its causal context, and the save time as JSON. Badger TTLs bound
// staleness, and a background loop compacts the value log. An entry that
// fails to decode or decrypt is evicted and reported as a miss, so a
// damaged cache degrades to cold reads instead of errors.
//
// With a passphrase configured, entries are encrypted before they reach
// disk. The passphrase and a persisted salt derive a master key via
// argon2id, and an HKDF subkey of it feeds the AEAD (ChaCha20-Poly1305 by
// default, AES-GCM selectable, auto picks by hardware support). The
// storage key is authenticated as
// additional data, so a ciphertext moved to another key fails to open.
// The salt lives next to the database in cache.salt.
package cache
