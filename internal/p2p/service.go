package p2p

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithOperation registers a local operation at construction time.
func WithOperation(name string, op Operation) ServiceOption {
	return func(s *Service) {
		s.ops.set(name, op)
	}
}

// WithKeyFunc overrides the key hashing used by keyed peers.
func WithKeyFunc(fn KeyFunc) ServiceOption {
	return func(s *Service) {
		s.keyFunc = fn
	}
}

// Service is one overlay application: its participant map, whether this
// node participates, and the operations it exports.
type Service struct {
	id       domain.ServiceID
	pmap     *ParticipantMap
	resolver *Resolver
	gossip   *Gossip
	router   *Router
	ops      *operations
	keyFunc  KeyFunc
	logger   *slog.Logger

	participating atomic.Bool

	closeOnce sync.Once
	cancels   []func()
}

func newService(id domain.ServiceID, cfg *Config, opts ...ServiceOption) (*Service, error) {
	topo := cfg.Topology
	pmap, err := NewParticipantMap(topo.Levels(), topo.GroupSize(), topo.Me(), id)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With("service", id)
	resolver := NewResolver(pmap, topo, cfg.Neighbors)
	ops := newOperations()

	s := &Service{
		id:       id,
		pmap:     pmap,
		resolver: resolver,
		gossip: &Gossip{
			id:      id,
			pmap:    pmap,
			neigh:   cfg.Neighbors,
			sched:   cfg.Scheduler,
			limiter: cfg.GossipLimiter,
			fanout:  cfg.GossipFanout,
			logger:  logger,
			metrics: cfg.Metrics,
		},
		router: &Router{
			id:       id,
			pmap:     pmap,
			resolver: resolver,
			ops:      ops,
			logger:   logger,
			metrics:  cfg.Metrics,
		},
		ops:     ops,
		keyFunc: MurmurKeyFunc(topo.Levels(), topo.GroupSize()),
		logger:  logger,
	}
	for _, opt := range cfg.ServiceDefaults {
		opt(s)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.listen(topo.Events(), cfg.Scheduler)
	return s, nil
}

// listen keeps the participant map in step with the topology map. Both
// handlers queue on the map so address changes apply in event order.
func (s *Service) listen(events *topology.Events, sched *Scheduler) {
	s.cancels = append(s.cancels,
		events.Listen(topology.MeChanged, func(ev topology.Event) {
			sched.Exclusive(s.pmap, "p2p.me_changed", func(context.Context) {
				if err := s.pmap.OnOwnAddressChanged(ev.Old, ev.New); err != nil {
					s.logger.Warn("failed to follow address change",
						"old", ev.Old.String(),
						"new", ev.New.String(),
						"error", err)
				}
			})
		}),
		events.Listen(topology.NodeDeleted, func(ev topology.Event) {
			sched.Exclusive(s.pmap, "p2p.node_deleted", func(context.Context) {
				s.pmap.OnNodeRemoved(ev.Level, ev.Pos)
			})
		}),
	)
}

// ID returns the service id.
func (s *Service) ID() domain.ServiceID { return s.id }

// Map returns the participant map.
func (s *Service) Map() *ParticipantMap { return s.pmap }

// Me returns this node's current address.
func (s *Service) Me() domain.Address { return s.pmap.Me() }

// IsParticipant reports whether this node participates in the service.
func (s *Service) IsParticipant() bool { return s.participating.Load() }

// Participate makes this node a participant and announces it.
func (s *Service) Participate(ctx context.Context) {
	s.participating.Store(true)
	s.gossip.BecomeParticipant(ctx)
}

// ParticipantAdd handles an announcement that addr participates.
func (s *Service) ParticipantAdd(ctx context.Context, addr domain.Address) (bool, error) {
	return s.gossip.AnnounceParticipant(ctx, addr)
}

// Resolve returns the participant owning target.
func (s *Service) Resolve(target domain.Address) (domain.Address, bool) {
	return s.resolver.ResolveHashNode(target)
}

// NextHop returns the neighbour to forward towards a resolved address.
func (s *Service) NextHop(resolved domain.Address) (Neighbor, bool) {
	return s.resolver.NextHopTowards(resolved)
}

// Send routes msg towards target.
func (s *Service) Send(ctx context.Context, sender, target domain.Address, msg Message) (any, error) {
	return s.router.Send(ctx, sender, target, msg)
}

// Deliver dispatches msg to a local operation.
func (s *Service) Deliver(ctx context.Context, sender domain.Address, msg Message) (any, error) {
	return s.router.DeliverLocal(ctx, sender, msg)
}

// Handle registers op under name, replacing any previous one.
func (s *Service) Handle(name string, op Operation) {
	s.ops.set(name, op)
}

// KeyToAddress hashes key with the service's key function.
func (s *Service) KeyToAddress(key []byte) domain.Address {
	return s.keyFunc(key)
}

// Close detaches the service from topology events. It is safe to call
// more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		for _, cancel := range s.cancels {
			cancel()
		}
	})
}

// stat reports the service for the metrics collector.
func (s *Service) stat() metric.ServiceStat {
	return metric.ServiceStat{
		ID:            s.id,
		Participants:  len(s.pmap.Participants()),
		Participating: s.IsParticipant(),
	}
}
