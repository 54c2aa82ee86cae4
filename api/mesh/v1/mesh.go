package meshv1

// ServiceName is the fully-qualified name of the mesh service.
const ServiceName = "meshp2p.mesh.v1.MeshService"

// Procedure paths.
const (
	ParticipantAddProcedure = "/" + ServiceName + "/ParticipantAdd"
	MsgSendProcedure        = "/" + ServiceName + "/MsgSend"
	ServiceStatesProcedure  = "/" + ServiceName + "/ServiceStates"
	ResolveProcedure        = "/" + ServiceName + "/Resolve"
	ParticipateProcedure    = "/" + ServiceName + "/Participate"
)

// Header names.
const (
	// GatewayHeader carries the node id of the calling neighbour.
	GatewayHeader = "Mesh-Gateway"
	// ErrorCodeHeader carries the overlay error code of a failed call.
	ErrorCodeHeader = "Mesh-Error-Code"
)

// ParticipantAddRequest announces that Address participates in Service.
type ParticipantAddRequest struct {
	Service uint32 `codec:"service"`
	Address []int  `codec:"address"`
}

// ParticipantAddResponse is empty.
type ParticipantAddResponse struct{}

// Message is the routed envelope.
type Message struct {
	ID   string `codec:"id"`
	Op   string `codec:"op"`
	Args []any  `codec:"args"`
}

// MsgSendRequest routes Message one step towards Target.
type MsgSendRequest struct {
	Service uint32  `codec:"service"`
	Sender  []int   `codec:"sender"`
	Target  []int   `codec:"target"`
	Message Message `codec:"message"`
}

// MsgSendResponse carries the result of the delivered operation.
type MsgSendResponse struct {
	Result any `codec:"result"`
}

// ServiceStatesRequest is empty.
type ServiceStatesRequest struct{}

// ServiceState is one exported participant map in its binary form.
type ServiceState struct {
	Service uint32 `codec:"service"`
	State   []byte `codec:"state"`
}

// ServiceStatesResponse lists every service of the node.
type ServiceStatesResponse struct {
	States []ServiceState `codec:"states"`
}

// ResolveRequest asks which participant owns Target, or the address Key
// hashes to when Target is empty. HasKey tells an empty key from none.
type ResolveRequest struct {
	Service uint32 `codec:"service"`
	Target  []int  `codec:"target"`
	Key     []byte `codec:"key"`
	HasKey  bool   `codec:"has_key"`
}

// ResolveResponse reports the owning participant and the neighbour a
// message towards it would leave through. NextHop is empty when the owner
// is the answering node.
type ResolveResponse struct {
	Found   bool   `codec:"found"`
	Target  []int  `codec:"target"`
	Address []int  `codec:"address"`
	NextHop string `codec:"next_hop"`
}

// ParticipateRequest makes the answering node participate in Service.
type ParticipateRequest struct {
	Service uint32 `codec:"service"`
}

// ParticipateResponse returns the address that was announced.
type ParticipateResponse struct {
	Address []int `codec:"address"`
}
