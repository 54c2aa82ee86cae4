package p2p

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

// Topology is the routing map of the mesh as seen by this node.
// *topology.RouteMap implements it.
type Topology interface {
	Levels() int
	GroupSize() int
	Me() domain.Address
	BestRoute(level, pos int) (topology.Route, bool)
	Events() *topology.Events
}

// Neighbor is a directly reachable node.
type Neighbor interface {
	ID() domain.GatewayID
	Address() domain.Address
	// Remote invokes the neighbour's exported registry operations.
	Remote() Remote
}

// Neighbors lists the directly reachable nodes.
type Neighbors interface {
	List() []Neighbor
	ByID(id domain.GatewayID) (Neighbor, bool)
}

// Remote is the set of operations a node exports to its neighbours. The
// Registry implements it for incoming calls; transports implement it for
// outgoing ones.
type Remote interface {
	// ParticipantAdd announces that addr participates in service id.
	ParticipantAdd(ctx context.Context, id domain.ServiceID, addr domain.Address) error
	// MsgSend routes msg one step further towards target.
	MsgSend(ctx context.Context, id domain.ServiceID, sender, target domain.Address, msg Message) (any, error)
	// ServiceStates exports every service map, for bootstrap.
	ServiceStates(ctx context.Context) ([]ServiceState, error)
}

// ServiceState pairs a service id with its exported participant map.
type ServiceState struct {
	ID    domain.ServiceID
	State State
}

// Message is the routed envelope: an operation name and its arguments.
type Message struct {
	ID   string
	Op   string
	Args []any
}

// NewMessage builds a message with a fresh ULID.
func NewMessage(op string, args ...any) Message {
	return Message{
		ID:   ulid.Make().String(),
		Op:   op,
		Args: args,
	}
}

// CallerInfo describes who invoked a delivered operation.
type CallerInfo struct {
	// Sender is the address of the node that issued the call.
	Sender domain.Address
	// Gateway is the neighbour that delivered the last hop; empty when
	// the call originated on this node.
	Gateway domain.GatewayID
	// MessageID is the id of the routed message.
	MessageID string
}

// Operation is a locally registered service operation.
type Operation func(ctx context.Context, caller CallerInfo, args []any) (any, error)

type gatewayKey struct{}

// WithGateway tags ctx with the neighbour an incoming call arrived from.
func WithGateway(ctx context.Context, gw domain.GatewayID) context.Context {
	return context.WithValue(ctx, gatewayKey{}, gw)
}

// GatewayFromContext returns the neighbour set by WithGateway.
func GatewayFromContext(ctx context.Context) domain.GatewayID {
	gw, _ := ctx.Value(gatewayKey{}).(domain.GatewayID)
	return gw
}
