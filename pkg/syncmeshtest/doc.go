// Package syncmeshtest provides an in-memory SyncMesh replica for tests.
//
// Store implements the client's Transport interface directly for fast
// in-process tests; Server wraps a Store in an HTTP server speaking the
// data API so the real transport is exercised end to end. The replica's
// observed-remove semantics are genuine: removes only delete state the
// presented causal context observed, so tests exercise real concurrent
// add/remove resolution rather than a lossy approximation.
package syncmeshtest
