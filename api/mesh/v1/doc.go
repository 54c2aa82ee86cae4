// Package meshv1 defines the RPC surface nodes of the mesh expose to each
// other and to the CLI.
//
// Messages are plain Go structs carried over Connect with a MessagePack
// codec, so operation arguments and results can be arbitrary values.
package meshv1
