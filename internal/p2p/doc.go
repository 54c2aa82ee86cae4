// Package p2p implements the peer-to-peer overlay that runs on top of the
// hierarchical mesh.
//
// Each overlay service, identified by a domain.ServiceID, keeps a
// ParticipantMap: which positions of the hierarchy contain at least one node
// that opted in to the service. From that map a node can hash any address
// onto the nearest live participant without a network round trip
// (Resolver), forward messages greedily towards it (Router), and learn about
// new participants through change-suppressed gossip (Gossip).
//
// The Registry multiplexes services over one RPC channel. It creates
// services lazily on first reference, so announcements for a service that
// has not been registered locally are never lost, and it bootstraps all
// maps from the nearest neighbour when the node joins the mesh.
//
// Topology, neighbour discovery and the RPC transport are collaborators
// consumed through the Topology, Neighbors and Remote interfaces.
package p2p
