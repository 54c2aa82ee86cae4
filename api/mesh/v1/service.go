package meshv1

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// MeshServiceHandler is implemented by nodes.
type MeshServiceHandler interface {
	ParticipantAdd(context.Context, *connect.Request[ParticipantAddRequest]) (*connect.Response[ParticipantAddResponse], error)
	MsgSend(context.Context, *connect.Request[MsgSendRequest]) (*connect.Response[MsgSendResponse], error)
	ServiceStates(context.Context, *connect.Request[ServiceStatesRequest]) (*connect.Response[ServiceStatesResponse], error)
	Resolve(context.Context, *connect.Request[ResolveRequest]) (*connect.Response[ResolveResponse], error)
	Participate(context.Context, *connect.Request[ParticipateRequest]) (*connect.Response[ParticipateResponse], error)
}

// NewMeshServiceHandler builds an HTTP handler serving every procedure
// under ServiceName. It returns the path to mount it on.
func NewMeshServiceHandler(svc MeshServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ParticipantAddProcedure, connect.NewUnaryHandler(ParticipantAddProcedure, svc.ParticipantAdd, opts...))
	mux.Handle(MsgSendProcedure, connect.NewUnaryHandler(MsgSendProcedure, svc.MsgSend, opts...))
	mux.Handle(ServiceStatesProcedure, connect.NewUnaryHandler(ServiceStatesProcedure, svc.ServiceStates, opts...))
	mux.Handle(ResolveProcedure, connect.NewUnaryHandler(ResolveProcedure, svc.Resolve, opts...))
	mux.Handle(ParticipateProcedure, connect.NewUnaryHandler(ParticipateProcedure, svc.Participate, opts...))

	return "/" + ServiceName + "/", mux
}

// MeshServiceClient calls a node.
type MeshServiceClient struct {
	participantAdd *connect.Client[ParticipantAddRequest, ParticipantAddResponse]
	msgSend        *connect.Client[MsgSendRequest, MsgSendResponse]
	serviceStates  *connect.Client[ServiceStatesRequest, ServiceStatesResponse]
	resolve        *connect.Client[ResolveRequest, ResolveResponse]
	participate    *connect.Client[ParticipateRequest, ParticipateResponse]
}

// NewMeshServiceClient creates a client for the node at baseURL.
func NewMeshServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MeshServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &MeshServiceClient{
		participantAdd: connect.NewClient[ParticipantAddRequest, ParticipantAddResponse](httpClient, baseURL+ParticipantAddProcedure, opts...),
		msgSend:        connect.NewClient[MsgSendRequest, MsgSendResponse](httpClient, baseURL+MsgSendProcedure, opts...),
		serviceStates:  connect.NewClient[ServiceStatesRequest, ServiceStatesResponse](httpClient, baseURL+ServiceStatesProcedure, opts...),
		resolve:        connect.NewClient[ResolveRequest, ResolveResponse](httpClient, baseURL+ResolveProcedure, opts...),
		participate:    connect.NewClient[ParticipateRequest, ParticipateResponse](httpClient, baseURL+ParticipateProcedure, opts...),
	}
}

// ParticipantAdd calls MeshService.ParticipantAdd.
func (c *MeshServiceClient) ParticipantAdd(ctx context.Context, req *connect.Request[ParticipantAddRequest]) (*connect.Response[ParticipantAddResponse], error) {
	return c.participantAdd.CallUnary(ctx, req)
}

// MsgSend calls MeshService.MsgSend.
func (c *MeshServiceClient) MsgSend(ctx context.Context, req *connect.Request[MsgSendRequest]) (*connect.Response[MsgSendResponse], error) {
	return c.msgSend.CallUnary(ctx, req)
}

// ServiceStates calls MeshService.ServiceStates.
func (c *MeshServiceClient) ServiceStates(ctx context.Context, req *connect.Request[ServiceStatesRequest]) (*connect.Response[ServiceStatesResponse], error) {
	return c.serviceStates.CallUnary(ctx, req)
}

// Resolve calls MeshService.Resolve.
func (c *MeshServiceClient) Resolve(ctx context.Context, req *connect.Request[ResolveRequest]) (*connect.Response[ResolveResponse], error) {
	return c.resolve.CallUnary(ctx, req)
}

// Participate calls MeshService.Participate.
func (c *MeshServiceClient) Participate(ctx context.Context, req *connect.Request[ParticipateRequest]) (*connect.Response[ParticipateResponse], error) {
	return c.participate.CallUnary(ctx, req)
}
