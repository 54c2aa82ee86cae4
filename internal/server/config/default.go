package config

import "time"

// Default configuration values.
const (
	DefaultLevels    = 3
	DefaultGroupSize = 16
	DefaultKeyHash   = KeyHashMurmur3

	DefaultRPCAddr        = "0.0.0.0:7400"
	DefaultGossipAddr     = "0.0.0.0"
	DefaultGossipPort     = 7946
	DefaultHookDelay      = 2 * time.Second
	DefaultAnnounceRate   = 50
	DefaultAnnounceBurst  = 10
	DefaultAnnounceFanout = 8

	DefaultDataDir          = "/var/lib/meshp2p-node/data"
	DefaultSnapshotInterval = time.Minute

	DefaultMetricsAddr = "127.0.0.1:9400"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Key hash names.
const (
	KeyHashMurmur3 = "murmur3"
	KeyHashBlake2b = "blake2b"
)

// Default returns the default node configuration. Node.Address is left
// empty and must be configured.
func Default() *NodeConfig {
	return &NodeConfig{
		Node: NodeSection{
			Levels:    DefaultLevels,
			GroupSize: DefaultGroupSize,
			KeyHash:   DefaultKeyHash,
		},
		Mesh: MeshSection{
			RPCAddr:        DefaultRPCAddr,
			GossipAddr:     DefaultGossipAddr,
			GossipPort:     DefaultGossipPort,
			HookDelay:      DefaultHookDelay,
			AnnounceRate:   DefaultAnnounceRate,
			AnnounceBurst:  DefaultAnnounceBurst,
			AnnounceFanout: DefaultAnnounceFanout,
		},
		Storage: StorageSection{
			Snapshots:        false,
			DataDir:          DefaultDataDir,
			SnapshotInterval: DefaultSnapshotInterval,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
