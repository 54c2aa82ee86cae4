package p2p

import (
	"context"
	"strconv"
	"time"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// HookSource fires when this node has joined the mesh.
type HookSource interface {
	OnHooked(fn func()) (cancel func())
}

// ListenHook runs OnNetworkJoin as a background task every time src fires.
func (r *Registry) ListenHook(src HookSource) (cancel func()) {
	return src.OnHooked(func() {
		r.cfg.Scheduler.Go("p2p.hook", func(ctx context.Context) {
			r.OnNetworkJoin(ctx)
		})
	})
}

// OnHooked subscribes fn to the completion of OnNetworkJoin. Registry is
// itself a HookSource, so services layered on top can chain their own
// bootstrap behind it.
func (r *Registry) OnHooked(fn func()) (cancel func()) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()

	id := r.hookID
	r.hookID++
	r.hookFuncs[id] = fn

	return func() {
		r.hookMu.Lock()
		defer r.hookMu.Unlock()
		delete(r.hookFuncs, id)
	}
}

func (r *Registry) emitHooked() {
	r.hookMu.Lock()
	fns := make([]func(), 0, len(r.hookFuncs))
	for _, fn := range r.hookFuncs {
		fns = append(fns, fn)
	}
	r.hookMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnNetworkJoin bootstraps the services from the nearest neighbour.
//
// The nearest neighbour is the one whose address diverges from ours at the
// lowest level; ties go to the first listed. Its exported maps are merged
// into ours, then every service this node participates in is announced
// again. Without neighbours this is a no-op. A neighbour that cannot be
// reached only skips the merge.
func (r *Registry) OnNetworkJoin(ctx context.Context) {
	start := time.Now()
	me := r.cfg.Topology.Me()

	var nearest Neighbor
	minLvl := r.cfg.Topology.Levels()
	for _, n := range r.cfg.Neighbors.List() {
		if lvl := domain.DivergenceLevel(me, n.Address()); lvl < minLvl {
			minLvl = lvl
			nearest = n
		}
	}
	if nearest == nil {
		return
	}

	states, err := nearest.Remote().ServiceStates(ctx)
	if err != nil {
		r.cfg.Logger.Warn("bootstrap state not fetched",
			"neighbor", nearest.ID(),
			"error", err)
	}
	for _, st := range states {
		svc, err := r.GetOrCreate(st.ID)
		if err != nil {
			r.cfg.Logger.Warn("bootstrap state skipped",
				"service", st.ID,
				"error", err)
			continue
		}
		learned := svc.pmap.Merge(st.State)
		r.cfg.Logger.Debug("bootstrap state merged",
			"service", st.ID,
			"neighbor", nearest.ID(),
			"learned", learned)
	}

	for _, svc := range r.Services() {
		if svc.IsParticipant() {
			svc.Participate(ctx)
		}
	}

	r.cfg.Metrics.ObserveHook(time.Since(start))
	r.cfg.Logger.Info("hooked to mesh",
		"neighbor", nearest.ID(),
		"services", len(states))
	r.emitHooked()
}

func serviceName(id domain.ServiceID) string {
	return "service " + strconv.FormatUint(uint64(id), 10)
}
