// Package storage persists participant maps across restarts.
//
// Each service map is stored as one badger entry keyed by service id,
// holding the protobuf wire form of p2p.State. On start the node loads
// every stored state and merges it back into the registry; a background
// loop saves fresh exports at a fixed interval.
package storage
