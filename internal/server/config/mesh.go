package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"

	"github.com/hashicorp/go-sockaddr"
	"golang.org/x/time/rate"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/infra/tlsroots"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
	"github.com/yndnr/meshp2p-go/internal/storage"
)

// NodeID returns the configured node id, generating one if empty.
//
// Format: mpnode-<16 hex chars> (e.g., "mpnode-a1b2c3d4e5f67890")
func NodeID(cfg *NodeConfig) (string, error) {
	if cfg.Node.NodeID != "" {
		return cfg.Node.NodeID, nil
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "mpnode-" + hex.EncodeToString(buf), nil
}

// Address returns the configured mesh address.
func Address(cfg *NodeConfig) domain.Address {
	return domain.Address(append([]int(nil), cfg.Node.Address...))
}

// KeyFunc returns the configured key-to-address function.
func KeyFunc(cfg *NodeConfig) p2p.KeyFunc {
	if cfg.Node.KeyHash == KeyHashBlake2b {
		return p2p.Blake2bKeyFunc(cfg.Node.Levels, cfg.Node.GroupSize)
	}
	return p2p.MurmurKeyFunc(cfg.Node.Levels, cfg.Node.GroupSize)
}

// AnnounceLimiter builds the limiter bounding participant announcements.
func AnnounceLimiter(cfg *NodeConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.Mesh.AnnounceRate), cfg.Mesh.AnnounceBurst)
}

// ServiceIDs returns the services to participate in.
func ServiceIDs(cfg *NodeConfig) []domain.ServiceID {
	out := make([]domain.ServiceID, 0, len(cfg.Services.Participate))
	for _, id := range cfg.Services.Participate {
		out = append(out, domain.ServiceID(id))
	}
	return out
}

// AdvertiseRPCAddr returns the RPC address neighbours should dial. When
// neither an advertise address nor a concrete bind host is configured, the
// first private IP of the host is used.
func AdvertiseRPCAddr(cfg *NodeConfig) (string, error) {
	if cfg.Mesh.AdvertiseRPCAddr != "" {
		return cfg.Mesh.AdvertiseRPCAddr, nil
	}

	host, port, err := net.SplitHostPort(cfg.Mesh.RPCAddr)
	if err != nil {
		return "", fmt.Errorf("mesh.rpc_addr: %w", err)
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return cfg.Mesh.RPCAddr, nil
	}
	if cfg.Mesh.AdvertiseAddr != "" {
		return net.JoinHostPort(cfg.Mesh.AdvertiseAddr, port), nil
	}

	private, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("detect private ip: %w", err)
	}
	if private == "" {
		return "", fmt.Errorf("mesh.rpc_addr %q binds all interfaces and no private ip was found; set mesh.advertise_rpc_addr", cfg.Mesh.RPCAddr)
	}
	return net.JoinHostPort(private, port), nil
}

// ToDiscoveryConfig maps the mesh section onto a meshserver.DiscoveryConfig.
func ToDiscoveryConfig(cfg *NodeConfig, nodeID, rpcAddr string, logger *slog.Logger) (meshserver.DiscoveryConfig, error) {
	key, err := decodeGossipKey(cfg.Mesh.GossipKey)
	if err != nil {
		return meshserver.DiscoveryConfig{}, err
	}
	return meshserver.DiscoveryConfig{
		NodeID:        nodeID,
		BindAddr:      cfg.Mesh.GossipAddr,
		BindPort:      cfg.Mesh.GossipPort,
		AdvertiseAddr: cfg.Mesh.AdvertiseAddr,
		RPCAddr:       rpcAddr,
		Address:       Address(cfg),
		SeedNodes:     cfg.Mesh.Seeds,
		SecretKey:     key,
		Logger:        logger,
	}, nil
}

// ToStorageConfig maps the storage section onto a storage.Config.
func ToStorageConfig(cfg *NodeConfig) storage.Config {
	return storage.DefaultConfig(cfg.Storage.DataDir)
}

// ToTLSConfig converts the mesh TLS section.
func ToTLSConfig(cfg *MeshSection) tlsroots.Config {
	return tlsroots.Config{
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
		CAFile:   cfg.TLS.CAFile,
	}
}
