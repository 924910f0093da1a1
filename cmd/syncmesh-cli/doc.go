// Package main provides the entry point for syncmesh-cli.
//
// syncmesh-cli gives command-line access to a SyncMesh store:
//
//   - Connection profiles (add, list, use, remove, show)
//   - Convergent sets (get, add, discard)
//   - Convergent counters (get, incr)
//   - Convergent maps (get, incr, enable, disable, assign, remove)
//   - Store status (ping, version)
//
// Usage:
//
//	syncmesh-cli [command] [flags]
//	syncmesh-cli set add groceries milk bread
//	syncmesh-cli counter incr --by 5 visits --output json
//	syncmesh-cli connect add local http://localhost:5170
//
// Commands work in single-shot mode or inside the interactive repl.
package main
