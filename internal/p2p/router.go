package p2p

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
)

// operations is the set of locally exported operations of a service.
type operations struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func newOperations() *operations {
	return &operations{ops: make(map[string]Operation)}
}

func (o *operations) set(name string, op Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops[name] = op
}

func (o *operations) get(name string) (Operation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	op, ok := o.ops[name]
	return op, ok
}

// Router forwards messages hop by hop towards the participant owning the
// resolved destination. No hop keeps per-message state.
type Router struct {
	id       domain.ServiceID
	pmap     *ParticipantMap
	resolver *Resolver
	ops      *operations
	logger   *slog.Logger
	metrics  *metric.Registry
}

// Send resolves target and either delivers msg locally or forwards it to
// the next hop, waiting for the final result. Unresolvable targets, missing
// routes and unreachable next hops all yield domain.ErrNotFound.
func (r *Router) Send(ctx context.Context, sender, target domain.Address, msg Message) (any, error) {
	hip, ok := r.resolver.ResolveHashNode(target)
	if !ok {
		r.metrics.RecordRoute(r.id, metric.RouteNotFound)
		return nil, domain.ErrNotFound.WithDetails("no participant for " + target.String())
	}

	if hip.Equal(r.pmap.Me()) {
		r.metrics.RecordRoute(r.id, metric.RouteDelivered)
		return r.DeliverLocal(ctx, sender, msg)
	}

	next, ok := r.resolver.NextHopTowards(hip)
	if !ok {
		r.metrics.RecordRoute(r.id, metric.RouteNotFound)
		return nil, domain.ErrNotFound.WithDetails("no route to " + hip.String())
	}

	r.logger.Debug("forwarding message",
		"service", r.id,
		"message_id", msg.ID,
		"op", msg.Op,
		"resolved", hip.String(),
		"next_hop", next.ID())

	res, err := next.Remote().MsgSend(ctx, r.id, sender, hip, msg)
	if err != nil {
		if errors.Is(err, domain.ErrUnreachable) {
			r.metrics.RecordRoute(r.id, metric.RouteNotFound)
			return nil, domain.ErrNotFound.WithDetails("next hop " + string(next.ID())).WithCause(err)
		}
		r.metrics.RecordRoute(r.id, metric.RouteFailed)
		return nil, err
	}

	r.metrics.RecordRoute(r.id, metric.RouteForwarded)
	return res, nil
}

// DeliverLocal dispatches msg to the locally registered operation. The
// operation's context carries the message and service ids for logger.L.
func (r *Router) DeliverLocal(ctx context.Context, sender domain.Address, msg Message) (any, error) {
	op, ok := r.ops.get(msg.Op)
	if !ok {
		return nil, domain.ErrUnknownOperation.WithDetails(msg.Op)
	}

	ctx = logger.WithLogger(ctx, r.logger)
	ctx = logger.WithMessageID(ctx, msg.ID)
	ctx = logger.WithService(ctx, uint32(r.id))

	caller := CallerInfo{
		Sender:    sender.Clone(),
		Gateway:   GatewayFromContext(ctx),
		MessageID: msg.ID,
	}
	return op(ctx, caller, msg.Args)
}
