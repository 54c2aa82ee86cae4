// Package meshserver connects nodes of the mesh.
//
// It serves the operations a node exports to its neighbours over Connect,
// calls them on neighbours through Client, and discovers neighbours with
// memberlist. Discovered neighbours feed the route map and the neighbour
// table the overlay forwards through.
package meshserver
