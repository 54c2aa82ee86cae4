package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

type testEnv struct {
	handler  *Handler
	registry *p2p.Registry
	ready    error
}

// newTestEnv builds node "A" at 2.1 (levels 2, group size 4) with one
// neighbour "B" at 2.3.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	metrics := metric.NewRegistry()

	routes, err := topology.NewRouteMap(2, 4, domain.Address{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	table := meshserver.NewNeighborTable(meshserver.NeighborTableConfig{
		Routes:  routes,
		Dial:    meshserver.DialHTTP(http.DefaultClient, "A"),
		Metrics: metrics,
		Logger:  log,
	})
	if !table.Add("B", domain.Address{3, 2}, "127.0.0.1:1") {
		t.Fatal("neighbour B rejected")
	}

	registry, err := p2p.NewRegistry(p2p.Config{
		Topology:  routes,
		Neighbors: table,
		Logger:    log,
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(registry.Close)

	env := &testEnv{registry: registry}
	env.handler = New(Config{
		NodeID:    "A",
		Topology:  routes,
		Neighbors: table,
		Registry:  registry,
		Ready:     func() error { return env.ready },
		Logger:    log,
	})
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("GET %s: body is not a response envelope: %v\n%s", path, err, rec.Body.String())
	}
	return rec, resp
}

// decodeData re-decodes the envelope's data into out.
func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	b, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatal(err)
	}
}

func TestHandler_Health(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.get(t, "/healthz")
	if rec.Code != http.StatusOK || resp.Code != "OK" {
		t.Errorf("healthz = %d %s", rec.Code, resp.Code)
	}

	rec, _ = env.get(t, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", rec.Code)
	}

	env.ready = errors.New("rpc not started")
	rec, resp = env.get(t, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", rec.Code)
	}
	var health HealthResponse
	decodeData(t, resp, &health)
	if health.Status != "not_ready" || health.Reason != "rpc not started" {
		t.Errorf("readyz body = %+v", health)
	}
}

func TestHandler_Status(t *testing.T) {
	env := newTestEnv(t)

	svc, err := env.registry.GetOrCreate(7)
	if err != nil {
		t.Fatal(err)
	}
	svc.Participate(context.Background())
	if _, err := env.registry.GetOrCreate(3); err != nil {
		t.Fatal(err)
	}

	rec, resp := env.get(t, "/admin/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st StatusResponse
	decodeData(t, resp, &st)

	if st.NodeID != "A" || st.Address != "2.1" || st.Levels != 2 || st.GroupSize != 4 {
		t.Errorf("identity = %+v", st)
	}
	if len(st.Neighbors) != 1 || st.Neighbors[0].ID != "B" || st.Neighbors[0].Address != "2.3" {
		t.Errorf("neighbors = %+v", st.Neighbors)
	}
	if len(st.Services) != 2 {
		t.Fatalf("services = %+v", st.Services)
	}
	if st.Services[0].Service != 3 || st.Services[0].Participant || st.Services[0].Participants != 0 {
		t.Errorf("service 3 = %+v", st.Services[0])
	}
	if st.Services[1].Service != 7 || !st.Services[1].Participant || st.Services[1].Participants != 2 {
		t.Errorf("service 7 = %+v", st.Services[1])
	}
}

func TestHandler_Routes(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.get(t, "/admin/v1/routes")
	var routes []RouteResponse
	decodeData(t, resp, &routes)

	if len(routes) != 1 {
		t.Fatalf("routes = %+v", routes)
	}
	want := RouteResponse{Level: 0, Pos: 3, Gateway: "B", Cost: 1}
	if routes[0] != want {
		t.Errorf("route = %+v, want %+v", routes[0], want)
	}
}

func TestHandler_Service(t *testing.T) {
	env := newTestEnv(t)

	svc, err := env.registry.GetOrCreate(5)
	if err != nil {
		t.Fatal(err)
	}
	svc.Participate(context.Background())

	rec, resp := env.get(t, "/admin/v1/services/5")
	if rec.Code != http.StatusOK {
		t.Fatalf("service = %d", rec.Code)
	}
	var got ServiceResponse
	decodeData(t, resp, &got)
	if got.Service != 5 || got.Me != "2.1" || !got.Participant {
		t.Errorf("service = %+v", got)
	}
	if len(got.Levels) != 2 || got.Levels[0].Positions[0] != 1 || got.Levels[1].Positions[0] != 2 {
		t.Errorf("levels = %+v", got.Levels)
	}

	t.Run("unknown", func(t *testing.T) {
		rec, resp := env.get(t, "/admin/v1/services/99")
		if rec.Code != http.StatusNotFound || resp.Code != domain.ErrServiceNotFound.Code {
			t.Errorf("unknown service = %d %s", rec.Code, resp.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec, _ := env.get(t, "/admin/v1/services/abc")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("bad id = %d, want 400", rec.Code)
		}
	})
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"MESH-P2P-4040", http.StatusNotFound},
		{"MESH-P2P-4042", http.StatusNotFound},
		{"MESH-P2P-4001", http.StatusBadRequest},
		{"MESH-SYS-4220", http.StatusBadRequest},
		{"MESH-P2P-5030", http.StatusServiceUnavailable},
		{"MESH-SYS-5001", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
