package p2p

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
)

// Gossip disseminates participant announcements.
//
// An announcement is forwarded only by nodes that learned something from
// it, so every wave dies out once it reaches nodes that already know the
// fact. Each node forwards a given fact at most once.
type Gossip struct {
	id      domain.ServiceID
	pmap    *ParticipantMap
	neigh   Neighbors
	sched   *Scheduler
	limiter *rate.Limiter
	fanout  int
	logger  *slog.Logger
	metrics *metric.Registry
}

// BecomeParticipant marks this node as participant and announces it to
// every neighbour. It does not wait for the announcements to be delivered.
func (g *Gossip) BecomeParticipant(ctx context.Context) {
	g.pmap.MarkSelf()
	g.logger.DebugContext(ctx, "participating", "service", g.id, "address", g.pmap.Me().String())
	g.broadcast(g.pmap.Me())
}

// AnnounceParticipant handles an announcement that addr participates.
//
// Every level from the one where addr diverges from us up to the outermost
// is marked. If nothing was new the announcement stops here; otherwise it
// is forwarded to every neighbour. Applying the same announcement again
// has no effect. It reports whether the map changed.
func (g *Gossip) AnnounceParticipant(ctx context.Context, addr domain.Address) (bool, error) {
	if err := addr.Validate(g.pmap.Levels(), g.pmap.GroupSize()); err != nil {
		return false, err
	}

	lvl := domain.DivergenceLevel(addr, g.pmap.Me())
	if lvl < 0 {
		lvl = 0
	}

	changed := false
	for l := lvl; l < g.pmap.Levels(); l++ {
		if g.pmap.markParticipant(l, addr[l]) {
			changed = true
		}
	}

	g.metrics.RecordAnnouncement(g.id, changed)
	if !changed {
		return false, nil
	}

	g.logger.DebugContext(ctx, "participant learned",
		"service", g.id,
		"participant", addr.String())
	g.broadcast(addr)
	return true, nil
}

// broadcast sends one ParticipantAdd per neighbour from a background task.
// Failures are absorbed: the fact may still arrive through another path.
func (g *Gossip) broadcast(addr domain.Address) {
	neighbors := g.neigh.List()
	if len(neighbors) == 0 {
		return
	}
	addr = addr.Clone()

	g.sched.Go("p2p.gossip", func(ctx context.Context) {
		var eg errgroup.Group
		if g.fanout > 0 {
			eg.SetLimit(g.fanout)
		}
		for _, n := range neighbors {
			eg.Go(func() error {
				if g.limiter != nil {
					if err := g.limiter.Wait(ctx); err != nil {
						return nil
					}
				}
				err := n.Remote().ParticipantAdd(ctx, g.id, addr)
				g.metrics.RecordAnnouncementSent(g.id, err)
				if err != nil {
					g.logger.Debug("announcement not delivered",
						"service", g.id,
						"neighbor", n.ID(),
						"error", err)
				}
				return nil
			})
		}
		_ = eg.Wait()
	})
}
