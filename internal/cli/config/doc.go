// Package config holds the local configuration of syncmesh-cli.
//
// The config file lives at ~/.syncmesh/cli.yaml and stores named
// connection profiles (endpoints plus API key) together with the output
// format default and the currently selected profile. Load reads it
// through the shared koanf loader, so SYNCMESH_CLI_* environment
// variables override file values. Save writes the file with 0600
// permissions because profiles carry API keys.
package config
