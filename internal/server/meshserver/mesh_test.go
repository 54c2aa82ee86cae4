package meshserver

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testNode is one mesh node served over httptest.
type testNode struct {
	id       domain.GatewayID
	addr     domain.Address
	routes   *topology.RouteMap
	table    *NeighborTable
	registry *p2p.Registry
	server   *httptest.Server
}

func newTestNode(t *testing.T, sched *p2p.Scheduler, id string, addr ...int) *testNode {
	t.Helper()
	logger := testLogger()
	metrics := metric.NewRegistry()

	routes, err := topology.NewRouteMap(len(addr), 8, addr)
	if err != nil {
		t.Fatalf("NewRouteMap() error = %v", err)
	}

	n := &testNode{id: domain.GatewayID(id), addr: addr, routes: routes}
	n.table = NewNeighborTable(NeighborTableConfig{
		Routes:  routes,
		Metrics: metrics,
		Logger:  logger,
	})

	n.registry, err = p2p.NewRegistry(p2p.Config{
		Topology:  routes,
		Neighbors: n.table,
		Scheduler: sched,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	srv := New(Config{Registry: n.registry, Metrics: metrics, Logger: logger})
	n.server = httptest.NewServer(srv.Handler())
	t.Cleanup(n.server.Close)

	n.table.cfg.Dial = DialHTTP(n.server.Client(), id)
	return n
}

func (n *testNode) rpcAddr() string {
	return n.server.Listener.Addr().String()
}

func link(a, b *testNode) {
	a.table.Add(b.id, b.addr, b.rpcAddr())
	b.table.Add(a.id, a.addr, a.rpcAddr())
}

func TestMeshOverHTTP_Forwarding(t *testing.T) {
	sched := p2p.NewScheduler(testLogger())
	t.Cleanup(sched.Close)

	a := newTestNode(t, sched, "A", 0)
	b := newTestNode(t, sched, "B", 1)
	c := newTestNode(t, sched, "C", 2)
	link(a, b)
	link(b, c)
	a.routes.RouteAdd(0, 2, b.id, 2)

	const id domain.ServiceID = 9
	var gateway domain.GatewayID
	svcC, err := c.registry.NewService(id, p2p.WithOperation("echo",
		func(_ context.Context, caller p2p.CallerInfo, args []any) (any, error) {
			gateway = caller.Gateway
			return args[0], nil
		}))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c.registry.Register(svcC)
	svcC.Participate(context.Background())
	sched.Wait()

	svcA, err := a.registry.Get(id)
	if err != nil {
		t.Fatalf("A did not learn service %d: %v", id, err)
	}
	if !svcA.Map().IsParticipant(0, 2) {
		t.Fatal("A did not learn C as participant")
	}

	peer, err := svcA.Peer(p2p.WithAddress(domain.Address{3}))
	if err != nil {
		t.Fatalf("Peer() error = %v", err)
	}
	res, err := peer.Call(context.Background(), "echo", "over the wire")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res != "over the wire" {
		t.Errorf("Call() = %#v, want %q", res, "over the wire")
	}
	if gateway != b.id {
		t.Errorf("caller gateway = %q, want %q", gateway, b.id)
	}

	_, err = peer.Call(context.Background(), "missing")
	if !domain.IsDomainError(err, domain.ErrUnknownOperation.Code) {
		t.Errorf("Call(missing) error = %v, want %v", err, domain.ErrUnknownOperation)
	}
}

func TestMeshOverHTTP_Bootstrap(t *testing.T) {
	sched := p2p.NewScheduler(testLogger())
	t.Cleanup(sched.Close)

	p := newTestNode(t, sched, "P", 1)
	n := newTestNode(t, sched, "N", 2)
	link(p, n)

	svcP, err := p.registry.GetOrCreate(3)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	svcP.Participate(context.Background())
	sched.Wait()

	d := newTestNode(t, sched, "D", 6)
	link(d, n)

	d.registry.OnNetworkJoin(context.Background())
	sched.Wait()

	svcD, err := d.registry.Get(3)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !svcD.Map().IsParticipant(0, 1) {
		t.Error("D did not bootstrap P from N")
	}
}

func TestMeshOverHTTP_UnreachableNeighbor(t *testing.T) {
	sched := p2p.NewScheduler(testLogger())
	t.Cleanup(sched.Close)

	a := newTestNode(t, sched, "A", 0)
	b := newTestNode(t, sched, "B", 1)
	link(a, b)

	svcB, err := b.registry.GetOrCreate(1)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	svcB.Participate(context.Background())
	sched.Wait()

	b.server.Close()

	svcA, err := a.registry.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_, err = svcA.Send(context.Background(), a.addr, domain.Address{1}, p2p.NewMessage("echo"))
	if !domain.IsDomainError(err, domain.ErrNotFound.Code) {
		t.Errorf("Send() error = %v, want %v", err, domain.ErrNotFound)
	}
}
