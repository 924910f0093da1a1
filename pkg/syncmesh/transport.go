package syncmesh

import (
	"context"

	"github.com/yndnr/syncmesh-go/internal/transport"
)

// Transport is the wire seam between the client and a SyncMesh store.
// New builds the multi-endpoint HTTP implementation by default;
// pkg/syncmeshtest provides an in-process replica for tests.
type Transport interface {
	// Fetch reads the current snapshot of a datatype.
	Fetch(ctx context.Context, req *transport.FetchRequest) (*transport.Snapshot, error)

	// Update applies a staged delta. The returned snapshot is nil unless
	// the request asked for the committed state back.
	Update(ctx context.Context, req *transport.UpdateRequest) (*transport.Snapshot, error)

	// Delete removes a datatype.
	Delete(ctx context.Context, req *transport.DeleteRequest) error

	// Ping checks store availability.
	Ping(ctx context.Context) error

	// Close releases transport resources.
	Close() error
}
