// Package main provides the entry point for meshp2p-node.
//
// A node joins the hierarchical mesh and runs the P2P overlay on top of
// it:
//
//   - memberlist discovery of direct neighbours
//   - the Connect mesh RPC endpoint neighbours call
//   - the services listed in the configuration, participating on start
//   - optional badger snapshots of participant maps
//   - a Prometheus /metrics endpoint
//
// Usage:
//
//	meshp2p-node --config /etc/meshp2p/node.yaml
//	meshp2p-node --address 1.3.0 --rpc-addr 10.0.0.5:7400 --seed 10.0.0.1:7946
package main
