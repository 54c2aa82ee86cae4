package config

import "time"

// NodeConfig is the root configuration of meshp2p-node.
type NodeConfig struct {
	Node     NodeSection     `koanf:"node"`
	Mesh     MeshSection     `koanf:"mesh"`
	Services ServicesSection `koanf:"services"`
	Storage  StorageSection  `koanf:"storage"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// NodeSection describes the node's place in the hierarchy.
type NodeSection struct {
	// NodeID is the gateway id other nodes know this node by.
	// If empty, a random ID is generated at startup.
	NodeID string `koanf:"node_id"`

	// Levels is the depth of the hierarchy.
	Levels int `koanf:"levels"`

	// GroupSize is the number of positions per level.
	GroupSize int `koanf:"group_size"`

	// Address is this node's position, one coordinate per level, level 0
	// first.
	Address []int `koanf:"address"`

	// KeyHash selects the key-to-address function: "murmur3" or "blake2b".
	KeyHash string `koanf:"key_hash"`
}

// MeshSection configures neighbour discovery and the mesh RPC endpoint.
type MeshSection struct {
	// RPCAddr is the mesh RPC listen address (e.g., "0.0.0.0:7400").
	RPCAddr string `koanf:"rpc_addr"`

	// AdvertiseRPCAddr is the RPC address announced to neighbours, if it
	// differs from RPCAddr.
	AdvertiseRPCAddr string `koanf:"advertise_rpc_addr"`

	// GossipAddr is the memberlist bind address.
	GossipAddr string `koanf:"gossip_addr"`

	// GossipPort is the memberlist bind port.
	GossipPort int `koanf:"gossip_port"`

	// AdvertiseAddr is the memberlist address announced to others.
	AdvertiseAddr string `koanf:"advertise_addr"`

	// Seeds are memberlist addresses to join on start.
	// Format: ["10.0.0.1:7946", "10.0.0.2:7946"]
	Seeds []string `koanf:"seeds"`

	// GossipKey is the base64 memberlist encryption key (16, 24 or 32
	// bytes decoded). Empty disables encryption.
	GossipKey string `koanf:"gossip_key"`

	// Neighbors restricts direct neighbours to these node ids.
	// Empty accepts every discovered node.
	Neighbors []string `koanf:"neighbors"`

	// HookDelay is how long to wait after the first neighbour appears
	// before bootstrapping from it.
	HookDelay time.Duration `koanf:"hook_delay"`

	// AnnounceRate bounds participant announcements sent per second.
	AnnounceRate float64 `koanf:"announce_rate"`

	// AnnounceBurst is the announcement limiter burst.
	AnnounceBurst int `koanf:"announce_burst"`

	// AnnounceFanout bounds concurrent announcements to neighbours.
	AnnounceFanout int `koanf:"announce_fanout"`

	// TLS enables mutual TLS between neighbours on the RPC endpoint.
	TLS TLSSection `koanf:"tls"`
}

// TLSSection names the PEM files of the mesh RPC plane. Setting a key
// pair switches the endpoint and every neighbour call to HTTPS.
type TLSSection struct {
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// CAFile holds the CAs neighbour certificates must chain to.
	// Empty means system roots.
	CAFile string `koanf:"ca_file"`
}

// ServicesSection lists the services this node runs.
type ServicesSection struct {
	// Participate lists service ids this node participates in on start.
	Participate []uint32 `koanf:"participate"`
}

// StorageSection configures participant map snapshots.
type StorageSection struct {
	// Snapshots enables persisting participant maps across restarts.
	Snapshots bool `koanf:"snapshots"`

	// DataDir is the badger directory.
	DataDir string `koanf:"data_dir"`

	// SnapshotInterval is how often maps are saved.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
}

// MetricsSection configures the ops HTTP endpoint serving /metrics, the
// health probes and the read-only admin API.
type MetricsSection struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `koanf:"addr"`

	// AllowList restricts /admin/v1 to these IPs or CIDRs.
	// Empty allows every client.
	AllowList []string `koanf:"allow_list"`

	// RateLimit bounds requests per second per client IP. 0 disables it.
	RateLimit float64 `koanf:"rate_limit"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
