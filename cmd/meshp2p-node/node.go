package main

import (
	"context"
	"errors"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/infra/buildinfo"
	"github.com/yndnr/meshp2p-go/internal/infra/confloader"
	"github.com/yndnr/meshp2p-go/internal/infra/shutdown"
	"github.com/yndnr/meshp2p-go/internal/infra/tlsroots"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/server/config"
	"github.com/yndnr/meshp2p-go/internal/server/httpserver"
	"github.com/yndnr/meshp2p-go/internal/server/httpserver/handler"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
	"github.com/yndnr/meshp2p-go/internal/storage"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

const (
	shutdownTimeout = 30 * time.Second
	rpcCallTimeout  = 10 * time.Second
)

func run(c *cli.Context) error {
	cfg, loader, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	nodeID, err := config.NodeID(cfg)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
		NodeID: nodeID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	log.Info("starting meshp2p-node",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", c.String("config"),
		"settings", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := shutdown.NewHandler(shutdownTimeout, log)
	if err := startNode(ctx, cfg, nodeID, log, handler); err != nil {
		// Undo what already started.
		handler.Trigger("startup failed")
		_ = handler.Wait(ctx)
		return err
	}

	if path := loader.FilePath(); path != "" {
		if err := watchConfig(path, loader, log, handler); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	log.Info("node started, press Ctrl+C to stop")
	if err := handler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("node stopped gracefully")
	return nil
}

// startNode wires the node together and registers a shutdown hook for
// every component it starts.
func startNode(ctx context.Context, cfg *config.NodeConfig, nodeID string, log *slog.Logger, shutdownHandler *shutdown.Handler) error {
	metrics := metric.Global()

	routes, err := topology.NewRouteMap(cfg.Node.Levels, cfg.Node.GroupSize, config.Address(cfg))
	if err != nil {
		return fmt.Errorf("init topology: %w", err)
	}

	rpcAddr, err := config.AdvertiseRPCAddr(cfg)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: rpcCallTimeout}
	dialer := meshserver.DialHTTP(httpClient, nodeID)
	var serverTLS *tls.Config
	if tlsCfg := config.ToTLSConfig(&cfg.Mesh); tlsCfg.Enabled() {
		bundle, err := tlsroots.Load(tlsCfg, log.With("component", "tls"))
		if err != nil {
			return fmt.Errorf("load mesh tls: %w", err)
		}
		shutdownHandler.OnShutdown("tls", func(context.Context) error {
			return bundle.Close()
		})
		httpClient.Transport = &http.Transport{TLSClientConfig: bundle.Client}
		dialer = meshserver.DialTLS(httpClient, nodeID)
		serverTLS = bundle.Server
	}

	table := meshserver.NewNeighborTable(meshserver.NeighborTableConfig{
		Routes:    routes,
		Dial:      dialer,
		Allow:     cfg.Mesh.Neighbors,
		HookDelay: cfg.Mesh.HookDelay,
		Metrics:   metrics,
		Logger:    log.With("component", "neighbors"),
	})

	defaults := append(meshserver.BuiltinOperations(nodeID, routes),
		p2p.WithKeyFunc(config.KeyFunc(cfg)))
	registry, err := p2p.NewRegistry(p2p.Config{
		Topology:        routes,
		Neighbors:       table,
		Logger:          log.With("component", "p2p"),
		Metrics:         metrics,
		GossipLimiter:   config.AnnounceLimiter(cfg),
		GossipFanout:    cfg.Mesh.AnnounceFanout,
		ServiceDefaults: defaults,
	})
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	metrics.MustRegister(metric.NewCollector(registry))

	var ready atomic.Bool
	if cfg.Metrics.Addr != "" {
		ops := httpserver.New(cfg.Metrics.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Handler: handler.New(handler.Config{
				NodeID:    nodeID,
				Topology:  routes,
				Neighbors: table,
				Registry:  registry,
				Ready: func() error {
					if !ready.Load() {
						return errors.New("node is starting")
					}
					return nil
				},
				Logger: log.With("component", "admin"),
			}),
			Metrics:        metrics.Handler(),
			Logger:         log.With("component", "ops"),
			AdminAllowList: cfg.Metrics.AllowList,
			RateLimit:      cfg.Metrics.RateLimit,
		}), log.With("component", "ops"))
		if err := ops.Start(); err != nil {
			registry.Close()
			return fmt.Errorf("start ops endpoint: %w", err)
		}
		shutdownHandler.OnShutdown("ops", ops.Shutdown)
	}

	var stopSnapshots func(context.Context) error
	if cfg.Storage.Snapshots {
		store, err := openSnapshots(ctx, cfg, registry, metrics, log)
		if err != nil {
			registry.Close()
			return err
		}
		shutdownHandler.OnShutdown("storage", func(context.Context) error {
			return store.Close()
		})

		loopCtx, stopLoop := context.WithCancel(ctx)
		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			store.Run(loopCtx, registry, cfg.Storage.SnapshotInterval)
		}()
		stopSnapshots = func(ctx context.Context) error {
			stopLoop()
			select {
			case <-loopDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	shutdownHandler.OnShutdown("registry", func(context.Context) error {
		registry.Close()
		return nil
	})
	if stopSnapshots != nil {
		// Runs before the registry closes so the final snapshot sees it.
		shutdownHandler.OnShutdown("snapshots", stopSnapshots)
	}

	for _, id := range config.ServiceIDs(cfg) {
		svc, err := registry.GetOrCreate(id)
		if err != nil {
			return fmt.Errorf("service %d: %w", id, err)
		}
		svc.Participate(ctx)
		log.Info("participating", "service", id, "address", svc.Me().String())
	}

	cancelHook := registry.ListenHook(table)
	shutdownHandler.OnShutdown("hook", func(context.Context) error {
		cancelHook()
		return nil
	})

	server := meshserver.New(meshserver.Config{
		Addr:     cfg.Mesh.RPCAddr,
		TLS:      serverTLS,
		Registry: registry,
		Metrics:  metrics,
		Logger:   log.With("component", "rpc"),
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("start rpc server: %w", err)
	}
	shutdownHandler.OnShutdown("rpc", server.Shutdown)

	discCfg, err := config.ToDiscoveryConfig(cfg, nodeID, rpcAddr, log.With("component", "discovery"))
	if err != nil {
		return err
	}
	discovery, err := meshserver.NewDiscovery(discCfg, table)
	if err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	shutdownHandler.OnShutdown("discovery", func(context.Context) error {
		return errors.Join(discovery.Leave(), discovery.Shutdown())
	})

	ready.Store(true)
	return nil
}

// openSnapshots opens the snapshot store and merges every saved map back
// into the registry.
func openSnapshots(ctx context.Context, cfg *config.NodeConfig, registry *p2p.Registry, metrics *metric.Registry, log *slog.Logger) (*storage.SnapshotStore, error) {
	store, err := storage.Open(config.ToStorageConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if err := store.RegisterMetrics(metrics.Registerer()); err != nil {
		log.Warn("snapshot metrics not registered", "error", err)
	}

	states, err := store.LoadAll(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	for _, st := range states {
		svc, err := registry.GetOrCreate(st.ID)
		if err != nil {
			log.Warn("skipping snapshot", "service", st.ID, "error", err)
			continue
		}
		learned := svc.Map().Merge(st.State)
		log.Info("restored participant map", "service", st.ID, "learned", learned)
	}
	return store, nil
}

// watchConfig reloads the log level when the configuration file changes.
func watchConfig(path string, loader *confloader.Loader, log *slog.Logger, handler *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if next.Log.Level == logger.GetLevel() {
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("ignoring invalid log level", "level", next.Log.Level, "error", err)
			return
		}
		log.Info("log level changed", "level", next.Log.Level)
	})
	w.StartAsync()

	handler.OnShutdown("config-watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
