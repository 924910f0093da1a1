// Package datatype implements the client-side convergent datatypes of SyncMesh.
//
// A convergent datatype (CRDT) is a value the store can merge across replicas
// without coordination. The client holds the last snapshot confirmed by the
// store, stages local mutations next to it, and ships a minimal delta
// (an Op) on commit. Staged mutations are invisible to reads until the store
// round-trip completes and Reset installs the fresh snapshot.
//
// Datatypes:
//
//   - Set: observed-remove set of strings. Removal requires a causal
//     context from the store; addition never does.
//   - Counter: integer counter accumulating a staged delta.
//   - Map: key-value composite whose members are themselves datatypes,
//     keyed by (name, type) pairs.
//   - Register and Flag: last-write-wins string and enable/disable boolean,
//     available only as Map members.
//
// Lifecycle:
//
//	s := datatype.NewSet()
//	s.Add("roaster")                 // staged, not visible to reads
//	op, ok := s.ToOp()               // delta for the transport layer
//	...                              // store applies op, returns value+context
//	s.Reset(value, ctx)              // snapshot replaced, staging cleared
//
// Instances are not safe for concurrent use: one logical edit session at a
// time, serialized by the caller. The enclosing client layer performs the
// commit/reset cycle.
package datatype
