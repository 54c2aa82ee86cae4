package meshserver

import (
	"context"
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

func TestBuiltinOperations_OverHTTP(t *testing.T) {
	sched := p2p.NewScheduler(testLogger())
	t.Cleanup(sched.Close)

	a := newTestNode(t, sched, "A", 0)
	b := newTestNode(t, sched, "B", 1)
	link(a, b)

	const id domain.ServiceID = 21
	svcB, err := b.registry.NewService(id, BuiltinOperations("B", b.routes)...)
	if err != nil {
		t.Fatal(err)
	}
	b.registry.Register(svcB)
	svcB.Participate(context.Background())
	sched.Wait()

	svcA, err := a.registry.Get(id)
	if err != nil {
		t.Fatalf("A did not learn service: %v", err)
	}
	peer, err := svcA.Peer(p2p.WithAddress(domain.Address{1}))
	if err != nil {
		t.Fatal(err)
	}

	res, err := peer.Call(context.Background(), OpWhoAmI)
	if err != nil {
		t.Fatalf("whoami error = %v", err)
	}
	info, ok := res.(map[string]any)
	if !ok {
		t.Fatalf("whoami returned %T", res)
	}
	if info["node_id"] != "B" {
		t.Errorf("node_id = %v", info["node_id"])
	}
	if info["gateway"] != "A" {
		t.Errorf("gateway = %v, want A", info["gateway"])
	}
	if info["message_id"] == "" {
		t.Error("message_id is empty")
	}

	res, err = peer.Call(context.Background(), OpEcho, "x", int64(2))
	if err != nil {
		t.Fatalf("echo error = %v", err)
	}
	args, ok := res.([]any)
	if !ok || len(args) != 2 || args[0] != "x" || args[1] != int64(2) {
		t.Errorf("echo = %#v", res)
	}
}
