package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/server/httpserver/handler"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

func newTestHandler(t *testing.T) (*handler.Handler, *metric.Registry) {
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

	return handler.New(handler.Config{
		NodeID:    "A",
		Topology:  routes,
		Neighbors: table,
		Registry:  registry,
		Logger:    log,
	}), metrics
}

func TestRouter(t *testing.T) {
	h, metrics := newTestHandler(t)

	router := NewRouter(&RouterConfig{
		Handler:        h,
		Metrics:        metrics.Handler(),
		Logger:         logger.Discard(),
		AdminAllowList: []string{"10.0.0.0/8"},
	})

	tests := []struct {
		name   string
		method string
		path   string
		remote string
		want   int
	}{
		{"healthz", http.MethodGet, "/healthz", "192.168.1.1:1", http.StatusOK},
		{"readyz", http.MethodGet, "/readyz", "192.168.1.1:1", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "192.168.1.1:1", http.StatusOK},
		{"admin allowed", http.MethodGet, "/admin/v1/status", "10.1.1.1:1", http.StatusOK},
		{"admin denied", http.MethodGet, "/admin/v1/status", "192.168.1.1:1", http.StatusForbidden},
		{"wrong method", http.MethodPost, "/healthz", "10.1.1.1:1", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
			if tt.want != http.StatusMethodNotAllowed && rec.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID not set")
			}
		})
	}
}

func TestRouter_NoMetrics(t *testing.T) {
	h, _ := newTestHandler(t)
	router := NewRouter(&RouterConfig{Handler: h})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics = %d, want 404", rec.Code)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	h, metrics := newTestHandler(t)
	srv := New("127.0.0.1:0", NewRouter(&RouterConfig{
		Handler: h,
		Metrics: metrics.Handler(),
		Logger:  logger.Discard(),
	}), logger.Discard())

	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "meshp2p_") {
		t.Errorf("metrics output has no meshp2p series:\n%s", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/healthz"); err == nil {
		t.Error("server still serving after Shutdown")
	}
}
