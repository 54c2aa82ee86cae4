// Package tests holds end-to-end tests that run several mesh nodes in one
// process.
//
// Each node has its own RPC listener, memberlist discovery and neighbour
// table, wired the way meshp2p-node wires them. The tests verify:
//   - bootstrap of participant maps when a node hooks to the mesh
//   - propagation of participant announcements
//   - key routing agreeing on one owner from every node
package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

const (
	testLevels    = 2
	testGroupSize = 4
	testService   = domain.ServiceID(11)
)

type meshNode struct {
	id        string
	registry  *p2p.Registry
	table     *meshserver.NeighborTable
	server    *meshserver.Server
	discovery *meshserver.Discovery
}

// startNode brings up a node at addr (level 0 first) and joins it to seed,
// if given.
func startNode(t *testing.T, id string, addr domain.Address, seed string) *meshNode {
	t.Helper()
	log := logger.Discard().With("node", id)
	metrics := metric.NewRegistry()

	routes, err := topology.NewRouteMap(testLevels, testGroupSize, addr)
	if err != nil {
		t.Fatalf("%s: NewRouteMap() error = %v", id, err)
	}

	n := &meshNode{id: id}
	n.table = meshserver.NewNeighborTable(meshserver.NeighborTableConfig{
		Routes:    routes,
		Dial:      meshserver.DialHTTP(&http.Client{Timeout: 5 * time.Second}, id),
		HookDelay: 50 * time.Millisecond,
		Metrics:   metrics,
		Logger:    log,
	})

	defaults := append(meshserver.BuiltinOperations(id, routes),
		p2p.WithKeyFunc(p2p.MurmurKeyFunc(testLevels, testGroupSize)))
	n.registry, err = p2p.NewRegistry(p2p.Config{
		Topology:        routes,
		Neighbors:       n.table,
		Logger:          log,
		Metrics:         metrics,
		ServiceDefaults: defaults,
	})
	if err != nil {
		t.Fatalf("%s: NewRegistry() error = %v", id, err)
	}
	cancelHook := n.registry.ListenHook(n.table)

	n.server = meshserver.New(meshserver.Config{
		Addr:     "127.0.0.1:0",
		Registry: n.registry,
		Metrics:  metrics,
		Logger:   log,
	})
	if err := n.server.Start(); err != nil {
		t.Fatalf("%s: Start() error = %v", id, err)
	}

	var seeds []string
	if seed != "" {
		seeds = []string{seed}
	}
	n.discovery, err = meshserver.NewDiscovery(meshserver.DiscoveryConfig{
		NodeID:    id,
		BindAddr:  "127.0.0.1",
		RPCAddr:   n.server.Addr(),
		Address:   addr,
		SeedNodes: seeds,
		Logger:    log,
	}, n.table)
	if err != nil {
		t.Fatalf("%s: NewDiscovery() error = %v", id, err)
	}

	t.Cleanup(func() {
		_ = n.discovery.Leave()
		_ = n.discovery.Shutdown()
		cancelHook()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = n.server.Shutdown(ctx)
		n.registry.Close()
	})
	return n
}

func (n *meshNode) gossipAddr() string {
	return n.discovery.LocalNode().Address()
}

func (n *meshNode) knowsParticipant(level, pos int) bool {
	svc, err := n.registry.Get(testService)
	return err == nil && svc.Map().IsParticipant(level, pos)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func whoami(t *testing.T, n *meshNode, key []byte) string {
	t.Helper()
	svc, err := n.registry.GetOrCreate(testService)
	if err != nil {
		t.Fatalf("%s: GetOrCreate() error = %v", n.id, err)
	}
	peer, err := svc.Peer(p2p.WithKey(key))
	if err != nil {
		t.Fatalf("%s: Peer() error = %v", n.id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := peer.Call(ctx, meshserver.OpWhoAmI)
	if err != nil {
		t.Fatalf("%s: whoami(%q) error = %v", n.id, key, err)
	}
	m, ok := res.(map[string]any)
	if !ok {
		t.Fatalf("%s: whoami returned %T", n.id, res)
	}
	owner, _ := m["node_id"].(string)
	return owner
}

func TestMesh_ThreeNode_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// a = 0.0, b = 0.1 and c = 1.2, written top level first.
	a := startNode(t, "node-a", domain.Address{0, 0}, "")

	svcA, err := a.registry.GetOrCreate(testService)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	svcA.Participate(context.Background())

	// Nodes join one at a time so every bootstrap source already holds
	// the maps of the nodes before it.
	b := startNode(t, "node-b", domain.Address{1, 0}, a.gossipAddr())
	waitFor(t, "b to bootstrap from a", func() bool { return b.knowsParticipant(0, 0) })

	c := startNode(t, "node-c", domain.Address{2, 1}, a.gossipAddr())
	// c sees a's whole level 1 group as one position.
	waitFor(t, "c to bootstrap", func() bool { return c.knowsParticipant(1, 0) })

	waitFor(t, "full neighbour tables", func() bool {
		return a.table.Len() == 2 && b.table.Len() == 2 && c.table.Len() == 2
	})

	t.Run("announce", func(t *testing.T) {
		svcB, err := b.registry.GetOrCreate(testService)
		if err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		svcB.Participate(context.Background())

		waitFor(t, "a to learn b", func() bool { return a.knowsParticipant(0, 1) })
		if c.knowsParticipant(1, 1) {
			t.Error("c marked its own group without a participant in it")
		}
	})

	t.Run("key routing", func(t *testing.T) {
		for i := 0; i < 16; i++ {
			key := []byte(fmt.Sprintf("key-%d", i))

			owner := whoami(t, a, key)
			if owner != "node-a" && owner != "node-b" {
				t.Fatalf("key %q owned by %q, not a participant", key, owner)
			}
			for _, n := range []*meshNode{b, c} {
				if got := whoami(t, n, key); got != owner {
					t.Errorf("key %q: %s routed to %q, node-a to %q", key, n.id, got, owner)
				}
			}
		}
	})

	t.Run("leave", func(t *testing.T) {
		if err := c.discovery.Leave(); err != nil {
			t.Fatalf("Leave() error = %v", err)
		}
		waitFor(t, "a to drop c", func() bool {
			_, ok := a.table.ByID("node-c")
			return !ok
		})
	})
}
