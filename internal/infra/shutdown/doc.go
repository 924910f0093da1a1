// Package shutdown provides graceful shutdown for SyncMesh.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return client.Close() })
//	err := h.Wait() // Blocks until SIGINT/SIGTERM, then runs hooks
package shutdown
