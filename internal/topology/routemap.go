package topology

import (
	"sort"
	"sync"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// Route is one way of reaching a position: through a gateway neighbour at
// some cost. Lower cost is better.
type Route struct {
	Gateway domain.GatewayID
	Cost    int
}

// RouteNode holds the known routes towards one position.
type RouteNode struct {
	mu     sync.RWMutex
	routes []Route
}

// BestRoute returns the cheapest route, ties broken by gateway id.
func (n *RouteNode) BestRoute() (Route, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.routes) == 0 {
		return Route{}, false
	}
	return n.routes[0], true
}

// Routes returns a copy of the routes, best first.
func (n *RouteNode) Routes() []Route {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Route(nil), n.routes...)
}

// upsert adds or updates the route through gw and reports whether the
// node had no routes before.
func (n *RouteNode) upsert(gw domain.GatewayID, cost int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	wasEmpty := len(n.routes) == 0
	found := false
	for i := range n.routes {
		if n.routes[i].Gateway == gw {
			n.routes[i].Cost = cost
			found = true
			break
		}
	}
	if !found {
		n.routes = append(n.routes, Route{Gateway: gw, Cost: cost})
	}
	sort.Slice(n.routes, func(i, j int) bool {
		if n.routes[i].Cost != n.routes[j].Cost {
			return n.routes[i].Cost < n.routes[j].Cost
		}
		return n.routes[i].Gateway < n.routes[j].Gateway
	})
	return wasEmpty
}

// remove drops the route through gw and reports whether any route is left.
func (n *RouteNode) remove(gw domain.GatewayID) (left bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.routes {
		if n.routes[i].Gateway == gw {
			n.routes = append(n.routes[:i], n.routes[i+1:]...)
			break
		}
	}
	return len(n.routes) > 0
}

// RouteMap is the routing view of the mesh: for each (level, pos) the
// routes through directly reachable gateways.
type RouteMap struct {
	*Grid[RouteNode]
}

// NewRouteMap creates an empty route map owned by me.
func NewRouteMap(levels, gsize int, me domain.Address) (*RouteMap, error) {
	g, err := NewGrid[RouteNode](levels, gsize, me, nil)
	if err != nil {
		return nil, err
	}
	return &RouteMap{Grid: g}, nil
}

// BestRoute returns the best route to (level, pos), if the position is
// populated.
func (m *RouteMap) BestRoute(level, pos int) (Route, bool) {
	if m.IsFree(level, pos) {
		return Route{}, false
	}
	n, ok := m.Lookup(level, pos)
	if !ok {
		return Route{}, false
	}
	return n.BestRoute()
}

// RouteAdd records a route to (level, pos) through gw, populating the
// position if this is its first route.
func (m *RouteMap) RouteAdd(level, pos int, gw domain.GatewayID, cost int) {
	n := m.NodeGet(level, pos)
	n.upsert(gw, cost)
	m.NodeAdd(level, pos)
}

// RouteDel removes the route to (level, pos) through gw. Removing the last
// route evicts the position and fires NodeDeleted.
func (m *RouteMap) RouteDel(level, pos int, gw domain.GatewayID) {
	n, ok := m.Lookup(level, pos)
	if !ok {
		return
	}
	if !n.remove(gw) {
		m.NodeDel(level, pos)
	}
}

// LearnNeighbor records the direct route to a neighbour at addr: the
// neighbour's position at the level where it diverges from us, cost 1.
func (m *RouteMap) LearnNeighbor(gw domain.GatewayID, addr domain.Address) bool {
	if !m.Contains(addr) {
		return false
	}
	lvl := domain.DivergenceLevel(m.Me(), addr)
	if lvl < 0 {
		return false
	}
	m.RouteAdd(lvl, addr[lvl], gw, 1)
	return true
}

// ForgetNeighbor removes every route through gw.
func (m *RouteMap) ForgetNeighbor(gw domain.GatewayID) {
	type slot struct{ level, pos int }
	var affected []slot
	m.Range(func(level, pos int, n *RouteNode) bool {
		for _, r := range n.Routes() {
			if r.Gateway == gw {
				affected = append(affected, slot{level, pos})
				break
			}
		}
		return true
	})
	for _, s := range affected {
		m.RouteDel(s.level, s.pos, gw)
	}
}
