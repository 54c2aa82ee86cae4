package meshserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

// Dialer returns the Remote used to call the node serving at rpcAddr.
type Dialer func(rpcAddr string) p2p.Remote

// neighbor is one entry of the NeighborTable.
type neighbor struct {
	id      domain.GatewayID
	addr    domain.Address
	rpcAddr string
	remote  p2p.Remote
}

func (n *neighbor) ID() domain.GatewayID    { return n.id }
func (n *neighbor) Address() domain.Address { return n.addr }
func (n *neighbor) Remote() p2p.Remote      { return n.remote }

// NeighborTableConfig configures a NeighborTable.
type NeighborTableConfig struct {
	// Routes receives a direct route for every neighbour. Required.
	Routes *topology.RouteMap
	// Dial builds the Remote of a new neighbour. Required.
	Dial Dialer
	// Allow restricts neighbours to these node ids; empty allows all.
	Allow []string
	// HookDelay is how long the table waits after the first neighbour
	// appears before reporting this node as hooked.
	HookDelay time.Duration
	// Metrics defaults to metric.Global().
	Metrics *metric.Registry
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NeighborTable is the set of directly reachable nodes. It implements
// p2p.Neighbors and p2p.HookSource: it reports the node hooked once the
// first neighbour appears, and again after losing all neighbours and
// finding a new one.
type NeighborTable struct {
	cfg   NeighborTableConfig
	allow map[string]bool

	mu     sync.RWMutex
	byID   map[domain.GatewayID]*neighbor
	order  []domain.GatewayID
	hooked bool
	timer  *time.Timer

	hookMu    sync.Mutex
	hookID    int
	hookFuncs map[int]func()
}

// NewNeighborTable creates an empty table.
func NewNeighborTable(cfg NeighborTableConfig) *NeighborTable {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}

	var allow map[string]bool
	if len(cfg.Allow) > 0 {
		allow = make(map[string]bool, len(cfg.Allow))
		for _, id := range cfg.Allow {
			allow[id] = true
		}
	}

	return &NeighborTable{
		cfg:       cfg,
		allow:     allow,
		byID:      make(map[domain.GatewayID]*neighbor),
		hookFuncs: make(map[int]func()),
	}
}

// Add records or refreshes neighbour id at addr, reachable at rpcAddr.
// It reports false if the neighbour is not allowed or addr does not fit
// the route map.
func (t *NeighborTable) Add(id domain.GatewayID, addr domain.Address, rpcAddr string) bool {
	if t.allow != nil && !t.allow[string(id)] {
		t.cfg.Logger.Debug("ignoring node outside the neighbour list", "node_id", id)
		return false
	}
	if !t.cfg.Routes.Contains(addr) {
		t.cfg.Logger.Warn("ignoring neighbour with invalid address",
			"node_id", id,
			"address", addr.String())
		return false
	}

	t.mu.Lock()
	old, exists := t.byID[id]
	n := &neighbor{id: id, addr: addr.Clone(), rpcAddr: rpcAddr}
	if exists && old.rpcAddr == rpcAddr {
		n.remote = old.remote
	} else {
		n.remote = t.cfg.Dial(rpcAddr)
	}
	t.byID[id] = n
	if !exists {
		t.order = append(t.order, id)
	}
	count := len(t.byID)
	startHook := !t.hooked
	if startHook {
		t.hooked = true
		t.timer = time.AfterFunc(t.cfg.HookDelay, t.emitHooked)
	}
	t.mu.Unlock()

	if exists && !old.addr.Equal(addr) {
		t.cfg.Routes.ForgetNeighbor(id)
	}
	t.cfg.Routes.LearnNeighbor(id, addr)
	t.cfg.Metrics.SetNeighbors(count)

	t.cfg.Logger.Info("neighbor up",
		"node_id", id,
		"address", addr.String(),
		"rpc_addr", rpcAddr)
	return true
}

// Remove drops neighbour id and every route through it.
func (t *NeighborTable) Remove(id domain.GatewayID) {
	t.mu.Lock()
	if _, ok := t.byID[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.byID, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	count := len(t.byID)
	if count == 0 {
		t.hooked = false
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
	t.mu.Unlock()

	t.cfg.Routes.ForgetNeighbor(id)
	t.cfg.Metrics.SetNeighbors(count)
	t.cfg.Logger.Info("neighbor down", "node_id", id)
}

// List implements p2p.Neighbors. Neighbours are listed in arrival order.
func (t *NeighborTable) List() []p2p.Neighbor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]p2p.Neighbor, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// ByID implements p2p.Neighbors.
func (t *NeighborTable) ByID(id domain.GatewayID) (p2p.Neighbor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Len returns the number of neighbours.
func (t *NeighborTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// OnHooked implements p2p.HookSource.
func (t *NeighborTable) OnHooked(fn func()) (cancel func()) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()

	id := t.hookID
	t.hookID++
	t.hookFuncs[id] = fn

	return func() {
		t.hookMu.Lock()
		defer t.hookMu.Unlock()
		delete(t.hookFuncs, id)
	}
}

func (t *NeighborTable) emitHooked() {
	t.hookMu.Lock()
	fns := make([]func(), 0, len(t.hookFuncs))
	for _, fn := range t.hookFuncs {
		fns = append(fns, fn)
	}
	t.hookMu.Unlock()

	t.cfg.Logger.Info("hooked", "neighbors", t.Len())
	for _, fn := range fns {
		fn()
	}
}

var (
	_ p2p.Neighbors  = (*NeighborTable)(nil)
	_ p2p.HookSource = (*NeighborTable)(nil)
)
