// Package command provides CLI command definitions for meshp2p-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: root command and global flags
//   - mesh.go: resolve, send, participate and announce
//   - states.go: service map inspection
//   - version.go: build information
//
// Every command talks to one node over its mesh RPC endpoint and formats
// the result with the output package.
package command
