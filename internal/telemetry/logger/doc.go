// Package logger provides structured logging for the SyncMesh client.
//
// This package wraps log/slog for structured logging:
//
//   - logger.go: Logger configuration and initialization
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering with runtime adjustment
//   - Automatic masking of API keys and context tokens
//   - Context propagation for request tracing
package logger
