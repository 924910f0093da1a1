// Package connection resolves CLI profiles into syncmesh clients.
//
// The Manager owns the one client a CLI invocation talks through. It is
// built lazily from the selected profile in ~/.syncmesh/cli.yaml, with
// --endpoint and --api-key flags overriding the profile's values. Client
// diagnostics are forced down to error level so structured log lines do
// not interleave with command output.
package connection
