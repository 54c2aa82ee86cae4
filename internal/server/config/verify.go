package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *NodeConfig) error {
	if err := verifyNode(&cfg.Node); err != nil {
		return err
	}
	if err := verifyMesh(&cfg.Mesh); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}

func verifyNode(cfg *NodeSection) error {
	if cfg.Levels < 1 {
		return errors.New("node.levels must be at least 1")
	}
	if cfg.GroupSize < 2 {
		return errors.New("node.group_size must be at least 2")
	}
	if len(cfg.Address) != cfg.Levels {
		return fmt.Errorf("node.address has %d coordinates, want %d", len(cfg.Address), cfg.Levels)
	}
	for i, c := range cfg.Address {
		if c < 0 || c >= cfg.GroupSize {
			return fmt.Errorf("node.address[%d] = %d out of range [0, %d)", i, c, cfg.GroupSize)
		}
	}
	switch cfg.KeyHash {
	case "", KeyHashMurmur3, KeyHashBlake2b:
	default:
		return fmt.Errorf("node.key_hash: unknown hash %q", cfg.KeyHash)
	}
	return nil
}

func verifyMesh(cfg *MeshSection) error {
	if _, _, err := net.SplitHostPort(cfg.RPCAddr); err != nil {
		return fmt.Errorf("mesh.rpc_addr: %w", err)
	}
	if cfg.AdvertiseRPCAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.AdvertiseRPCAddr); err != nil {
			return fmt.Errorf("mesh.advertise_rpc_addr: %w", err)
		}
	}
	if cfg.GossipPort < 0 || cfg.GossipPort > 65535 {
		return fmt.Errorf("mesh.gossip_port %d out of range", cfg.GossipPort)
	}
	if _, err := decodeGossipKey(cfg.GossipKey); err != nil {
		return err
	}
	if cfg.HookDelay < 0 {
		return errors.New("mesh.hook_delay must not be negative")
	}
	if cfg.AnnounceRate <= 0 {
		return errors.New("mesh.announce_rate must be positive")
	}
	if cfg.AnnounceBurst < 1 {
		return errors.New("mesh.announce_burst must be at least 1")
	}
	if cfg.AnnounceFanout < 1 {
		return errors.New("mesh.announce_fanout must be at least 1")
	}
	if err := ToTLSConfig(cfg).Validate(); err != nil {
		return fmt.Errorf("mesh.tls: %w", err)
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	for _, entry := range cfg.AllowList {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("metrics.allow_list: %q is neither an IP nor a CIDR", entry)
		}
	}
	if cfg.RateLimit < 0 {
		return errors.New("metrics.rate_limit must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if !cfg.Snapshots {
		return nil
	}
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required when snapshots are enabled")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if cfg.SnapshotInterval <= 0 {
		return errors.New("storage.snapshot_interval must be positive")
	}
	return nil
}

func decodeGossipKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("mesh.gossip_key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("mesh.gossip_key decodes to %d bytes, want 16, 24 or 32", len(key))
	}
}
