// Package metric provides Prometheus metrics for the SyncMesh client.
//
// This package implements metrics collection:
//
//   - prometheus.go: Registry of client collectors and record helpers
//   - collector.go: Build info collector
//
// Collectors are registered on a caller-supplied prometheus.Registerer;
// the package never touches the global default registry. A nil
// registerer disables collection entirely: NewRegistry returns nil and
// every record method on a nil *Registry is a no-op.
//
// Exposed metrics:
//
//   - syncmesh_client_requests_total{method,status}
//   - syncmesh_client_request_duration_seconds{method}
//   - syncmesh_client_retries_total
//   - syncmesh_cache_hits_total, syncmesh_cache_misses_total
//   - syncmesh_cache_gc_runs_total
//   - syncmesh_journal_appended_total, syncmesh_journal_replayed_total
//   - syncmesh_journal_pending
//   - syncmesh_build_info{version,commit,go_version}
package metric
