// Package main provides the entry point for meshp2p-cli.
//
// meshp2p-cli talks to one node over its mesh RPC endpoint:
//
//	meshp2p-cli --node 10.0.0.5:7400 participate -s 7
//	meshp2p-cli resolve -s 7 --key session-42
//	meshp2p-cli send -s 7 --key session-42 --json echo '"hi"' 3
//	meshp2p-cli -o json states
package main
