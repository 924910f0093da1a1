// Package output renders syncmesh-cli command results.
//
// Three formats are supported: an aligned text table for people, and
// JSON or YAML for scripts. The table formatter uses reflection so
// commands hand over plain result structs and every format renders the
// same data.
package output
