// Package syncmesh is the client SDK for the SyncMesh store.
//
// A Client talks to one or more store endpoints and hands out cheap
// Bucket handles. Datatypes fetched through a bucket are live pkg/datatype
// instances: stage mutations locally, then Update ships the delta and
// refreshes the instance from the store's reply.
//
//	client, err := syncmesh.New(cfg)
//	...
//	carts := client.Bucket("carts")
//	cart, err := carts.FetchSet(ctx, "alice")
//	...
//	cart.Add("milk")
//	err = carts.Update(ctx, "alice", cart)
//
// A datatype instance is one logical edit session: the client never
// serializes concurrent use of the same instance. The Client itself, and
// every handle it returns, is safe for concurrent use.
//
// With a cache directory configured, fetches fall back to the last seen
// snapshot when no endpoint is reachable. With a journal directory
// configured, updates that cannot reach any endpoint are queued on disk
// (surfaced as ErrOperationQueued) and delivered by Replay.
package syncmesh
