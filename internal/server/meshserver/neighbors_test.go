package meshserver

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

type nopRemote struct{ addr string }

func (nopRemote) ParticipantAdd(context.Context, domain.ServiceID, domain.Address) error { return nil }
func (nopRemote) MsgSend(context.Context, domain.ServiceID, domain.Address, domain.Address, p2p.Message) (any, error) {
	return nil, nil
}
func (nopRemote) ServiceStates(context.Context) ([]p2p.ServiceState, error) { return nil, nil }

func newTestTable(t *testing.T, allow ...string) (*NeighborTable, *topology.RouteMap, *int) {
	t.Helper()
	routes, err := topology.NewRouteMap(2, 4, domain.Address{0, 0})
	if err != nil {
		t.Fatalf("NewRouteMap() error = %v", err)
	}
	dials := 0
	table := NewNeighborTable(NeighborTableConfig{
		Routes: routes,
		Dial: func(addr string) p2p.Remote {
			dials++
			return nopRemote{addr: addr}
		},
		Allow:   allow,
		Metrics: metric.NewRegistry(),
		Logger:  testLogger(),
	})
	return table, routes, &dials
}

func TestNeighborTable_AddRemove(t *testing.T) {
	table, routes, dials := newTestTable(t)

	if !table.Add("B", domain.Address{1, 0}, "10.0.0.2:7700") {
		t.Fatal("Add(B) = false")
	}
	if !table.Add("C", domain.Address{3, 2}, "10.0.0.3:7700") {
		t.Fatal("Add(C) = false")
	}

	if r, ok := routes.BestRoute(0, 1); !ok || r.Gateway != "B" {
		t.Errorf("route to (0,1) = %+v, %v; want via B", r, ok)
	}
	if r, ok := routes.BestRoute(1, 2); !ok || r.Gateway != "C" {
		t.Errorf("route to (1,2) = %+v, %v; want via C", r, ok)
	}

	list := table.List()
	if len(list) != 2 || list[0].ID() != "B" || list[1].ID() != "C" {
		t.Errorf("List() = %v, want [B C]", list)
	}

	// Refreshing with the same RPC address reuses the client.
	table.Add("B", domain.Address{1, 0}, "10.0.0.2:7700")
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}

	table.Remove("B")
	if _, ok := table.ByID("B"); ok {
		t.Error("ByID(B) found after Remove")
	}
	if _, ok := routes.BestRoute(0, 1); ok {
		t.Error("route through B kept after Remove")
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestNeighborTable_MovedNeighbor(t *testing.T) {
	table, routes, _ := newTestTable(t)

	table.Add("B", domain.Address{1, 0}, "b:1")
	table.Add("B", domain.Address{2, 0}, "b:1")

	if _, ok := routes.BestRoute(0, 1); ok {
		t.Error("stale route to old position kept")
	}
	if r, ok := routes.BestRoute(0, 2); !ok || r.Gateway != "B" {
		t.Errorf("route to (0,2) = %+v, %v; want via B", r, ok)
	}
	if n, _ := table.ByID("B"); !n.Address().Equal(domain.Address{2, 0}) {
		t.Errorf("B address = %v, want [2 0]", n.Address())
	}
}

func TestNeighborTable_Rejects(t *testing.T) {
	table, _, _ := newTestTable(t, "B")

	if table.Add("X", domain.Address{1, 0}, "x:1") {
		t.Error("Add() outside the allow list succeeded")
	}
	if table.Add("B", domain.Address{9, 0}, "b:1") {
		t.Error("Add() with invalid address succeeded")
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestNeighborTable_Hooked(t *testing.T) {
	table, _, _ := newTestTable(t)

	hooked := make(chan struct{}, 4)
	table.OnHooked(func() { hooked <- struct{}{} })

	table.Add("B", domain.Address{1, 0}, "b:1")
	table.Add("C", domain.Address{2, 0}, "c:1")

	select {
	case <-hooked:
	case <-time.After(time.Second):
		t.Fatal("hooked not reported after the first neighbour")
	}

	select {
	case <-hooked:
		t.Fatal("hooked reported twice for one join")
	case <-time.After(50 * time.Millisecond):
	}

	table.Remove("B")
	table.Remove("C")
	table.Add("D", domain.Address{3, 0}, "d:1")

	select {
	case <-hooked:
	case <-time.After(time.Second):
		t.Fatal("hooked not reported after rejoining")
	}
}
