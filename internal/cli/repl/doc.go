// Package repl is the interactive mode of syncmesh-cli.
//
// The loop reads lines from stdin, tokenizes them with shell-style
// quoting, and dispatches them through the same command tree as
// one-shot invocations. A trailing "?" lists matching commands, and
// history persists to ~/.syncmesh/history between sessions.
package repl
