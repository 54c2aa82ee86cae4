package meshserver

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/hashicorp/memberlist"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// Discovery keeps a NeighborTable in step with memberlist membership.
// Each member gossips its mesh address and RPC address as node metadata.
type Discovery struct {
	memberList *memberlist.Memberlist
	table      *NeighborTable
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool
}

// DiscoveryConfig configures the discovery mechanism.
type DiscoveryConfig struct {
	// NodeID is the unique node identifier; it doubles as gateway id.
	NodeID string

	// BindAddr is the address to bind for gossip communication.
	BindAddr string

	// BindPort is the port to bind for gossip communication.
	BindPort int

	// AdvertiseAddr is the gossip address announced to others, if it
	// differs from BindAddr.
	AdvertiseAddr string

	// RPCAddr is the mesh RPC address (host:port) shared with others.
	RPCAddr string

	// Address is this node's position in the mesh.
	Address domain.Address

	// SeedNodes are the initial nodes to join.
	SeedNodes []string

	// SecretKey enables gossip encryption. 16, 24 or 32 bytes; nil
	// disables it.
	SecretKey []byte

	// Logger for logging.
	Logger *slog.Logger
}

// nodeMeta is the memberlist metadata of a mesh node.
type nodeMeta struct {
	Address []int  `codec:"a"`
	RPCAddr string `codec:"r"`
}

func encodeMeta(m nodeMeta) ([]byte, error) {
	return meshv1.Codec{}.Marshal(&m)
}

func decodeMeta(b []byte) (nodeMeta, error) {
	var m nodeMeta
	err := meshv1.Codec{}.Unmarshal(b, &m)
	return m, err
}

// NewDiscovery starts gossiping on cfg.BindAddr:cfg.BindPort and joins
// the seed nodes. Without seeds the node waits to be joined.
func NewDiscovery(cfg DiscoveryConfig, table *NeighborTable) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	meta, err := encodeMeta(nodeMeta{Address: cfg.Address, RPCAddr: cfg.RPCAddr})
	if err != nil {
		return nil, fmt.Errorf("encode node metadata: %w", err)
	}
	if len(meta) > memberlist.MetaMaxSize {
		return nil, fmt.Errorf("node metadata is %d bytes, memberlist allows %d", len(meta), memberlist.MetaMaxSize)
	}

	d := &Discovery{table: table, logger: cfg.Logger}

	mc := memberlist.DefaultLANConfig()
	mc.Name = cfg.NodeID
	mc.BindAddr = cfg.BindAddr
	mc.BindPort = cfg.BindPort
	if cfg.AdvertiseAddr != "" {
		mc.AdvertiseAddr = cfg.AdvertiseAddr
		mc.AdvertisePort = cfg.BindPort
	}
	mc.SecretKey = cfg.SecretKey
	mc.Logger = newHCLogger(cfg.Logger, "memberlist").StandardLogger(nil)
	del := &gossipDelegate{d: d, self: cfg.NodeID, meta: meta}
	mc.Delegate = del
	mc.Events = del

	if d.memberList, err = memberlist.Create(mc); err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}

	if len(cfg.SeedNodes) == 0 {
		d.logger.Info("discovery waiting to be joined", "gossip_port", d.memberList.LocalNode().Port)
		return d, nil
	}
	n, err := d.memberList.Join(cfg.SeedNodes)
	if err != nil {
		_ = d.memberList.Shutdown()
		return nil, fmt.Errorf("join seed nodes: %w", err)
	}
	d.logger.Info("joined mesh", "seed_nodes", cfg.SeedNodes, "contacted", n)
	return d, nil
}

// Members lists the live members, this node included.
func (d *Discovery) Members() []*memberlist.Node {
	return d.memberList.Members()
}

// LocalNode describes this node as the other members see it.
func (d *Discovery) LocalNode() *memberlist.Node {
	return d.memberList.LocalNode()
}

// Leave broadcasts a graceful departure so neighbours drop this node at
// once instead of waiting for the failure detector.
func (d *Discovery) Leave() error {
	if err := d.memberList.Leave(0); err != nil {
		return fmt.Errorf("leave mesh: %w", err)
	}
	d.logger.Info("left mesh")
	return nil
}

// Shutdown stops gossip. It is safe to call more than once.
func (d *Discovery) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown {
		return nil
	}
	d.shutdown = true
	if err := d.memberList.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	return nil
}

// gossipDelegate publishes this node's metadata and turns membership
// events into neighbour table updates. It implements memberlist.Delegate
// and memberlist.EventDelegate.
type gossipDelegate struct {
	d    *Discovery
	self string
	meta []byte
}

func (g *gossipDelegate) NodeMeta(limit int) []byte {
	if len(g.meta) > limit {
		return nil
	}
	return g.meta
}

func (g *gossipDelegate) NotifyJoin(node *memberlist.Node) { g.learn(node) }
func (g *gossipDelegate) NotifyUpdate(node *memberlist.Node) { g.learn(node) }

func (g *gossipDelegate) NotifyLeave(node *memberlist.Node) {
	if node.Name != g.self {
		g.d.table.Remove(domain.GatewayID(node.Name))
	}
}

func (g *gossipDelegate) learn(node *memberlist.Node) {
	if node.Name == g.self {
		return
	}
	meta, err := decodeMeta(node.Meta)
	if err != nil || meta.RPCAddr == "" {
		g.d.logger.Warn("member without mesh metadata",
			"member", node.Name,
			"gossip_addr", net.JoinHostPort(node.Addr.String(), strconv.Itoa(int(node.Port))),
			"error", err)
		return
	}
	g.d.table.Add(domain.GatewayID(node.Name), meta.Address, meta.RPCAddr)
}

// Overlay state travels over the mesh RPC, not over gossip.
func (g *gossipDelegate) NotifyMsg([]byte) {}
func (g *gossipDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (g *gossipDelegate) LocalState(join bool) []byte { return nil }
func (g *gossipDelegate) MergeRemoteState(buf []byte, join bool) {}
