package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked,
// for logging.
func Sanitize(cfg *NodeConfig) *NodeConfig {
	sanitized := *cfg

	if sanitized.Mesh.GossipKey != "" {
		sanitized.Mesh.GossipKey = maskSecret(sanitized.Mesh.GossipKey)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
