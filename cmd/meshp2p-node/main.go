package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/infra/buildinfo"
	"github.com/yndnr/meshp2p-go/internal/infra/confloader"
	"github.com/yndnr/meshp2p-go/internal/server/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "meshp2p-node",
		Usage:   "Run a mesh P2P overlay node",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"MESHP2P_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "node-id",
				Usage: "Node id (overrides node.node_id)",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Mesh address as dot separated coordinates, top level first (e.g. 1.3.0)",
			},
			&cli.StringFlag{
				Name:  "rpc-addr",
				Usage: "Mesh RPC listen address (overrides mesh.rpc_addr)",
			},
			&cli.IntFlag{
				Name:  "gossip-port",
				Usage: "Memberlist port (overrides mesh.gossip_port)",
			},
			&cli.StringSliceFlag{
				Name:  "seed",
				Usage: "Memberlist seed address, repeatable (overrides mesh.seeds)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (overrides log.level)",
			},
		},
		Action: run,
	}
}

// flagOverrides turns the flags that were set into dotted config keys.
func flagOverrides(c *cli.Context) (map[string]any, error) {
	out := make(map[string]any)
	if c.IsSet("node-id") {
		out["node.node_id"] = c.String("node-id")
	}
	if c.IsSet("address") {
		addr, err := parseAddress(c.String("address"))
		if err != nil {
			return nil, err
		}
		out["node.address"] = addr
	}
	if c.IsSet("rpc-addr") {
		out["mesh.rpc_addr"] = c.String("rpc-addr")
	}
	if c.IsSet("gossip-port") {
		out["mesh.gossip_port"] = c.Int("gossip-port")
	}
	if c.IsSet("seed") {
		out["mesh.seeds"] = c.StringSlice("seed")
	}
	if c.IsSet("log-level") {
		out["log.level"] = c.String("log-level")
	}
	return out, nil
}

// parseAddress parses the dotted form shown in logs into the level 0 first
// coordinates stored under node.address.
func parseAddress(s string) ([]int, error) {
	addr, err := domain.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return []int(addr), nil
}

// loadConfig loads configuration from file, environment and flags.
func loadConfig(c *cli.Context) (*config.NodeConfig, *confloader.Loader, error) {
	cfg := config.Default()

	overrides, err := flagOverrides(c)
	if err != nil {
		return nil, nil, err
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, loader, nil
}
