// Package command defines the syncmesh-cli command tree on urfave/cli.
//
// Groups follow the datatypes: set, counter, and map mutate through the
// client SDK, connect manages saved profiles, system covers ping and
// version, and repl runs the interactive loop. Mutations that only add
// state skip the fetch round trip; removals and disables fetch first to
// establish the causal context the store demands.
package command
