// Package tlsroots provides TLS material for the mesh RPC plane.
//
//   - roots.go: system and custom CA pools
//   - watcher.go: certificate hot reload on file changes
//   - mesh.go: mutual TLS configs for nodes and the CLI
//
// Neighbours authenticate each other with certificates signed by a shared
// CA; either side presents the certificate currently on disk.
package tlsroots
