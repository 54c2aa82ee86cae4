package meshserver

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// Client calls the mesh service of one node. It implements p2p.Remote, so
// a neighbour's Client is what the overlay forwards through.
type Client struct {
	rpc  *meshv1.MeshServiceClient
	self domain.GatewayID
}

// NewClient creates a client for the node at baseURL. self is sent as the
// gateway id of every call; leave it empty for calls that do not come from
// a mesh node.
func NewClient(httpClient connect.HTTPClient, baseURL string, self domain.GatewayID, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		rpc:  meshv1.NewMeshServiceClient(httpClient, baseURL, opts...),
		self: self,
	}
}

func request[T any](c *Client, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if c.self != "" {
		req.Header().Set(meshv1.GatewayHeader, string(c.self))
	}
	return req
}

// ParticipantAdd implements p2p.Remote.
func (c *Client) ParticipantAdd(ctx context.Context, id domain.ServiceID, addr domain.Address) error {
	_, err := c.rpc.ParticipantAdd(ctx, request(c, &meshv1.ParticipantAddRequest{
		Service: uint32(id),
		Address: addr,
	}))
	return fromConnectError(err)
}

// MsgSend implements p2p.Remote.
func (c *Client) MsgSend(ctx context.Context, id domain.ServiceID, sender, target domain.Address, msg p2p.Message) (any, error) {
	resp, err := c.rpc.MsgSend(ctx, request(c, &meshv1.MsgSendRequest{
		Service: uint32(id),
		Sender:  sender,
		Target:  target,
		Message: meshv1.Message{
			ID:   msg.ID,
			Op:   msg.Op,
			Args: msg.Args,
		},
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Result, nil
}

// ServiceStates implements p2p.Remote.
func (c *Client) ServiceStates(ctx context.Context) ([]p2p.ServiceState, error) {
	resp, err := c.rpc.ServiceStates(ctx, request(c, &meshv1.ServiceStatesRequest{}))
	if err != nil {
		return nil, fromConnectError(err)
	}

	out := make([]p2p.ServiceState, 0, len(resp.Msg.States))
	for _, st := range resp.Msg.States {
		var state p2p.State
		if err := state.UnmarshalBinary(st.State); err != nil {
			return nil, err
		}
		out = append(out, p2p.ServiceState{ID: domain.ServiceID(st.Service), State: state})
	}
	return out, nil
}

// Resolution is the answer of Resolve.
type Resolution struct {
	Target  domain.Address
	Owner   domain.Address
	Found   bool
	NextHop domain.GatewayID
}

// Resolve asks the node which participant owns target, or key when target
// is nil.
func (c *Client) Resolve(ctx context.Context, id domain.ServiceID, target domain.Address, key []byte) (Resolution, error) {
	resp, err := c.rpc.Resolve(ctx, request(c, &meshv1.ResolveRequest{
		Service: uint32(id),
		Target:  target,
		Key:     key,
		HasKey:  key != nil,
	}))
	if err != nil {
		return Resolution{}, fromConnectError(err)
	}
	return Resolution{
		Target:  resp.Msg.Target,
		Owner:   resp.Msg.Address,
		Found:   resp.Msg.Found,
		NextHop: domain.GatewayID(resp.Msg.NextHop),
	}, nil
}

// Participate makes the node a participant of service id and returns the
// announced address.
func (c *Client) Participate(ctx context.Context, id domain.ServiceID) (domain.Address, error) {
	resp, err := c.rpc.Participate(ctx, request(c, &meshv1.ParticipateRequest{Service: uint32(id)}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Address, nil
}

var _ p2p.Remote = (*Client)(nil)
