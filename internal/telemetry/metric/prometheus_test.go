package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.MessagesRouted == nil || r.AnnouncementsReceived == nil {
		t.Error("overlay metrics not initialised")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler_RuntimeMetrics(t *testing.T) {
	body := scrape(t, NewRegistry())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestAnnouncementMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordAnnouncement(7, true)
	r.RecordAnnouncement(7, false)
	r.RecordAnnouncement(7, false)
	r.RecordAnnouncementSent(7, nil)
	r.RecordAnnouncementSent(7, errors.New("down"))

	body := scrape(t, r)

	for _, want := range []string{
		`meshp2p_announcements_received_total{service="7"} 3`,
		`meshp2p_announcements_suppressed_total{service="7"} 2`,
		`meshp2p_announcements_sent_total{result="ok",service="7"} 1`,
		`meshp2p_announcements_sent_total{result="error",service="7"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestRouteAndHookMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRoute(1, RouteDelivered)
	r.RecordRoute(1, RouteNotFound)
	r.RecordRoute(1, RouteNotFound)
	r.ObserveHook(20 * time.Millisecond)
	r.SetNeighbors(4)
	r.ObserveRPC("/meshp2p.v1.Mesh/MsgSend", "ok", time.Millisecond)

	body := scrape(t, r)

	for _, want := range []string{
		`meshp2p_messages_routed_total{outcome="delivered",service="1"} 1`,
		`meshp2p_messages_routed_total{outcome="not_found",service="1"} 2`,
		`meshp2p_hooks_total 1`,
		`meshp2p_hook_duration_seconds_count 1`,
		`meshp2p_neighbors 4`,
		`meshp2p_rpc_duration_seconds_count{code="ok",procedure="/meshp2p.v1.Mesh/MsgSend"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}
