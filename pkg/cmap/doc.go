// Package cmap provides a concurrent map implementation for SyncMesh.
//
// This package implements a sharded concurrent map used for the client's
// bucket handle cache and the in-memory test store, with the following
// features:
//
//   - Sharding: Configurable shard count for parallelism
//   - Fine-grained Locking: Per-shard RWMutex for minimal contention
//   - Atomic Updates: Update applies a function under the shard lock
//   - Iteration: Safe iteration while holding read locks
//
// Usage:
//
//	m := cmap.New[string, *Bucket]()
//	m.Set("key", bucket)
//	val, ok := m.Get("key")
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete, Update) use Lock.
package cmap
