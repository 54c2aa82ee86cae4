package p2p

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/pkg/cmap"
)

// Config configures a Registry.
type Config struct {
	// Topology is the routing map of this node. Required.
	Topology Topology
	// Neighbors lists the directly reachable nodes. Required.
	Neighbors Neighbors
	// Scheduler runs background work. A private one is created if nil.
	Scheduler *Scheduler
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics defaults to metric.Global().
	Metrics *metric.Registry
	// GossipLimiter throttles outgoing announcements; nil means unlimited.
	GossipLimiter *rate.Limiter
	// GossipFanout bounds concurrent announcements per broadcast; 0 means
	// one per neighbour.
	GossipFanout int
	// ServiceDefaults apply to every service before its own options,
	// including services created on a neighbour's request.
	ServiceDefaults []ServiceOption
}

// Registry multiplexes services over one node. Services are created on
// first reference, from this node or from a neighbour.
//
// Registry implements Remote: it is the receiving end of the operations
// neighbours invoke on this node.
type Registry struct {
	cfg      Config
	services *cmap.Map[domain.ServiceID, *Service]

	hookMu    sync.Mutex
	hookID    int
	hookFuncs map[int]func()
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Topology == nil {
		return nil, errors.New("p2p: topology is required")
	}
	if cfg.Neighbors == nil {
		return nil, errors.New("p2p: neighbors are required")
	}
	if err := cfg.Topology.Me().Validate(cfg.Topology.Levels(), cfg.Topology.GroupSize()); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewScheduler(cfg.Logger)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}

	return &Registry{
		cfg:       cfg,
		services:  cmap.New[domain.ServiceID, *Service](cmap.HashUint32[domain.ServiceID]),
		hookFuncs: make(map[int]func()),
	}, nil
}

// Scheduler returns the scheduler running the registry's background work.
func (r *Registry) Scheduler() *Scheduler {
	return r.cfg.Scheduler
}

// NewService builds a service bound to this node without installing it.
// Install it with Register.
func (r *Registry) NewService(id domain.ServiceID, opts ...ServiceOption) (*Service, error) {
	return newService(id, &r.cfg, opts...)
}

// GetOrCreate returns the service id, creating an empty, non-participating
// one if none exists.
func (r *Registry) GetOrCreate(id domain.ServiceID) (*Service, error) {
	if svc, ok := r.services.Get(id); ok {
		return svc, nil
	}

	svc, err := r.NewService(id)
	if err != nil {
		return nil, err
	}
	actual, loaded := r.services.GetOrSet(id, svc)
	if loaded {
		svc.Close()
	}
	return actual, nil
}

// Get returns the service id without creating it.
func (r *Registry) Get(id domain.ServiceID) (*Service, error) {
	svc, ok := r.services.Get(id)
	if !ok {
		return nil, domain.ErrServiceNotFound.WithDetails(serviceName(id))
	}
	return svc, nil
}

// Remove drops the service id.
func (r *Registry) Remove(id domain.ServiceID) {
	if svc, ok := r.services.Pop(id); ok {
		svc.Close()
	}
}

// Services lists the installed services ordered by id.
func (r *Registry) Services() []*Service {
	out := r.services.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Register installs svc. Participants accumulated by a placeholder that
// was created for the same id before svc existed are merged into svc, and
// the placeholder is closed.
func (r *Registry) Register(svc *Service) {
	r.services.Upsert(svc.id, svc, func(existing *Service, exists bool) *Service {
		if exists && existing != svc {
			if n := svc.pmap.Merge(existing.pmap.Export()); n > 0 {
				r.cfg.Logger.Debug("merged placeholder state",
					"service", svc.id,
					"learned", n)
			}
			existing.Close()
		}
		return svc
	})
}

// ParticipantAdd implements Remote.
func (r *Registry) ParticipantAdd(ctx context.Context, id domain.ServiceID, addr domain.Address) error {
	svc, err := r.GetOrCreate(id)
	if err != nil {
		return err
	}
	_, err = svc.ParticipantAdd(ctx, addr)
	return err
}

// MsgSend implements Remote.
func (r *Registry) MsgSend(ctx context.Context, id domain.ServiceID, sender, target domain.Address, msg Message) (any, error) {
	svc, err := r.GetOrCreate(id)
	if err != nil {
		return nil, err
	}
	return svc.Send(ctx, sender, target, msg)
}

// ServiceStates implements Remote. It exports every service map, for a
// neighbour bootstrapping into the mesh.
func (r *Registry) ServiceStates(context.Context) ([]ServiceState, error) {
	services := r.Services()
	out := make([]ServiceState, 0, len(services))
	for _, svc := range services {
		out = append(out, ServiceState{ID: svc.id, State: svc.pmap.Export()})
	}
	return out, nil
}

// ServiceStats implements metric.ServiceSource.
func (r *Registry) ServiceStats() []metric.ServiceStat {
	services := r.Services()
	out := make([]metric.ServiceStat, 0, len(services))
	for _, svc := range services {
		out = append(out, svc.stat())
	}
	return out
}

// Close detaches every service and stops background work.
func (r *Registry) Close() {
	for _, svc := range r.services.Values() {
		svc.Close()
	}
	r.cfg.Scheduler.Close()
}

var _ Remote = (*Registry)(nil)
var _ metric.ServiceSource = (*Registry)(nil)
