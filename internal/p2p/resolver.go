package p2p

import (
	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// Resolver maps arbitrary addresses onto participants and picks the
// neighbour to forward through.
type Resolver struct {
	pmap  *ParticipantMap
	topo  Topology
	neigh Neighbors
}

// NewResolver creates a resolver over the given map and collaborators.
func NewResolver(pmap *ParticipantMap, topo Topology, neigh Neighbors) *Resolver {
	return &Resolver{pmap: pmap, topo: topo, neigh: neigh}
}

// ResolveHashNode returns the address of the participant closest to target.
//
// Levels are scanned from the outermost down. At each level the search
// walks outwards from target's coordinate (offset 0, +1, -1, +2, -2, ...
// modulo the group size) until a participant position is found. If that
// position is our own, the target falls inside our own group and the next
// finer level is refined; otherwise the search stops there and the finer
// coordinates are copied from target. A level without any participant
// makes the whole resolution fail.
func (r *Resolver) ResolveHashNode(target domain.Address) (domain.Address, bool) {
	levels := r.pmap.Levels()
	if err := target.Validate(levels, r.pmap.GroupSize()); err != nil {
		return nil, false
	}

	me := r.pmap.Me()
	resolved := target.Clone()
	for l := levels - 1; l >= 0; l-- {
		pos, found := r.nearestParticipant(l, target[l])
		if !found {
			return nil, false
		}
		resolved[l] = pos
		if pos != me[l] {
			break
		}
	}
	return resolved, true
}

// nearestParticipant searches level for the participant position closest
// to center. Position 0 is a valid result; found carries the outcome.
func (r *Resolver) nearestParticipant(level, center int) (pos int, found bool) {
	gsize := r.pmap.GroupSize()
	for d := 0; d <= gsize/2; d++ {
		for _, sign := range [2]int{1, -1} {
			p := ((center+sign*d)%gsize + gsize) % gsize
			if r.pmap.IsParticipant(level, p) {
				return p, true
			}
			if d == 0 {
				break
			}
		}
	}
	return 0, false
}

// NextHopTowards returns the neighbour that leads to resolved: the gateway
// of the best route to resolved's position at the level where it diverges
// from our own address.
func (r *Resolver) NextHopTowards(resolved domain.Address) (Neighbor, bool) {
	me := r.pmap.Me()
	lvl := domain.DivergenceLevel(resolved, me)
	if lvl < 0 || lvl >= len(resolved) {
		return nil, false
	}

	route, ok := r.topo.BestRoute(lvl, resolved[lvl])
	if !ok {
		return nil, false
	}
	return r.neigh.ByID(route.Gateway)
}
