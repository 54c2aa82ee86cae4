package meshserver

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// Handler implements meshv1.MeshServiceHandler on top of a p2p.Registry.
type Handler struct {
	registry *p2p.Registry
	logger   *slog.Logger
}

// NewHandler creates a new RPC handler.
func NewHandler(registry *p2p.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// incoming tags ctx with the neighbour named in the request headers.
func incoming[T any](ctx context.Context, req *connect.Request[T]) context.Context {
	if gw := req.Header().Get(meshv1.GatewayHeader); gw != "" {
		return p2p.WithGateway(ctx, domain.GatewayID(gw))
	}
	return ctx
}

// ParticipantAdd handles an announcement from a neighbour.
func (h *Handler) ParticipantAdd(
	ctx context.Context,
	req *connect.Request[meshv1.ParticipantAddRequest],
) (*connect.Response[meshv1.ParticipantAddResponse], error) {
	err := h.registry.ParticipantAdd(incoming(ctx, req),
		domain.ServiceID(req.Msg.Service), req.Msg.Address)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&meshv1.ParticipantAddResponse{}), nil
}

// MsgSend routes a message one step further and waits for its result.
func (h *Handler) MsgSend(
	ctx context.Context,
	req *connect.Request[meshv1.MsgSendRequest],
) (*connect.Response[meshv1.MsgSendResponse], error) {
	msg := p2p.Message{
		ID:   req.Msg.Message.ID,
		Op:   req.Msg.Message.Op,
		Args: req.Msg.Message.Args,
	}
	res, err := h.registry.MsgSend(incoming(ctx, req),
		domain.ServiceID(req.Msg.Service), req.Msg.Sender, req.Msg.Target, msg)
	if err != nil {
		h.logger.Debug("message not delivered",
			"service", req.Msg.Service,
			"message_id", msg.ID,
			"error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&meshv1.MsgSendResponse{Result: res}), nil
}

// ServiceStates exports every service map to a bootstrapping neighbour.
func (h *Handler) ServiceStates(
	ctx context.Context,
	req *connect.Request[meshv1.ServiceStatesRequest],
) (*connect.Response[meshv1.ServiceStatesResponse], error) {
	states, err := h.registry.ServiceStates(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]meshv1.ServiceState, 0, len(states))
	for _, st := range states {
		b, err := st.State.MarshalBinary()
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		out = append(out, meshv1.ServiceState{Service: uint32(st.ID), State: b})
	}
	return connect.NewResponse(&meshv1.ServiceStatesResponse{States: out}), nil
}

// Resolve reports which participant owns a target address or key.
func (h *Handler) Resolve(
	ctx context.Context,
	req *connect.Request[meshv1.ResolveRequest],
) (*connect.Response[meshv1.ResolveResponse], error) {
	svc, err := h.registry.GetOrCreate(domain.ServiceID(req.Msg.Service))
	if err != nil {
		return nil, toConnectError(err)
	}

	target := domain.Address(req.Msg.Target)
	if len(target) == 0 {
		if !req.Msg.HasKey {
			return nil, toConnectError(domain.ErrInvalidPeer)
		}
		target = svc.KeyToAddress(req.Msg.Key)
	}

	resp := &meshv1.ResolveResponse{Target: target}
	resolved, ok := svc.Resolve(target)
	if !ok {
		return connect.NewResponse(resp), nil
	}
	resp.Found = true
	resp.Address = resolved
	if !resolved.Equal(svc.Me()) {
		if next, ok := svc.NextHop(resolved); ok {
			resp.NextHop = string(next.ID())
		}
	}
	return connect.NewResponse(resp), nil
}

// Participate makes this node a participant of a service.
func (h *Handler) Participate(
	ctx context.Context,
	req *connect.Request[meshv1.ParticipateRequest],
) (*connect.Response[meshv1.ParticipateResponse], error) {
	svc, err := h.registry.GetOrCreate(domain.ServiceID(req.Msg.Service))
	if err != nil {
		return nil, toConnectError(err)
	}
	svc.Participate(ctx)

	h.logger.Info("participating",
		"service", req.Msg.Service,
		"address", svc.Me().String())
	return connect.NewResponse(&meshv1.ParticipateResponse{Address: svc.Me()}), nil
}

var _ meshv1.MeshServiceHandler = (*Handler)(nil)
