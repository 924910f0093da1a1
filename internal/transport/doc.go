// Package transport implements the HTTP JSON wire protocol of the SyncMesh
// data API.
//
// A Client fans requests out across the configured endpoints. A murmur3
// consistent-hash ring with virtual nodes routes every datatype address to
// a preferred endpoint so store-side caches stay warm; availability
// failures fail over to the next distinct endpoint. Idempotent requests
// (fetch, ping) additionally retry with exponential backoff and jitter.
// Mutations are sent once: a counter increment that is reissued after a
// lost response would apply twice, so they fail over only when the
// connection was never established.
//
// Endpoints accept http://, https://, and unix:// addresses; a bare
// host:port defaults to http://. Each endpoint can be throttled with a
// politeness rate limiter, and store error bodies are mapped back onto the
// SM-* sentinels in pkg/datatype.
package transport
