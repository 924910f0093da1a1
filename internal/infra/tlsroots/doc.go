// Package tlsroots provides TLS certificate management for SyncMesh.
//
// This package handles TLS certificate loading and management:
//
//   - roots.go: System certificates + custom CA loading
//   - watcher.go: Certificate hot-reload via fsnotify
//
// Features:
//
//   - System certificate pool integration
//   - Custom CA certificate support
//   - Client certificates for mutual TLS
//   - Automatic certificate reload on file changes
package tlsroots
