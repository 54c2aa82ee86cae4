// Package topology provides the hierarchical map substrate of the mesh.
//
// A map covers Levels hierarchy levels with GroupSize positions each. Level
// 0 holds single nodes, level 1 holds groups of level-0 nodes, and so on.
// Every position is backed by a lazily created record:
//
//   - Grid: generic record array with node lifecycle and events
//   - RouteMap: Grid of routes, answering "which gateway reaches (l, p)"
//   - Events: synchronous NODE_NEW / NODE_DELETED / ME_CHANGED bus
//
// Records returned by NodeGet are shared; record types synchronise their
// own fields.
package topology
