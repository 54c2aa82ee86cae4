package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

const namespace = "meshp2p"

// Routing outcomes recorded by RecordRoute.
const (
	RouteDelivered = "delivered"
	RouteForwarded = "forwarded"
	RouteNotFound  = "not_found"
	RouteFailed    = "failed"
)

// Registry holds all overlay metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	AnnouncementsReceived   *prometheus.CounterVec
	AnnouncementsSuppressed *prometheus.CounterVec
	AnnouncementsSent       *prometheus.CounterVec
	MessagesRouted          *prometheus.CounterVec
	HookDuration            prometheus.Histogram
	HooksTotal              prometheus.Counter
	Neighbors               prometheus.Gauge
	RPCDuration             *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the overlay metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		AnnouncementsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_received_total",
			Help:      "Participant announcements handled, by service.",
		}, []string{"service"}),
		AnnouncementsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_suppressed_total",
			Help:      "Announcements that carried no new information and were not forwarded.",
		}, []string{"service"}),
		AnnouncementsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_sent_total",
			Help:      "Announcement RPCs issued to neighbours, by service and result.",
		}, []string{"service", "result"}),
		MessagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Routed overlay messages, by service and outcome.",
		}, []string{"service", "outcome"}),
		HookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hook_duration_seconds",
			Help:      "Duration of the join bootstrap procedure.",
			Buckets:   prometheus.DefBuckets,
		}),
		HooksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hooks_total",
			Help:      "Completed join bootstrap procedures.",
		}),
		Neighbors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "neighbors",
			Help:      "Directly reachable neighbours.",
		}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Mesh RPC handling latency, by procedure and code.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"procedure", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.AnnouncementsReceived,
		r.AnnouncementsSuppressed,
		r.AnnouncementsSent,
		r.MessagesRouted,
		r.HookDuration,
		r.HooksTotal,
		r.Neighbors,
		r.RPCDuration,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// MustRegister adds extra collectors to the registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Registerer exposes the underlying registry to components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

func serviceLabel(id domain.ServiceID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// RecordAnnouncement counts one handled announcement; changed=false means
// the gossip wave stopped here.
func (r *Registry) RecordAnnouncement(id domain.ServiceID, changed bool) {
	label := serviceLabel(id)
	r.AnnouncementsReceived.WithLabelValues(label).Inc()
	if !changed {
		r.AnnouncementsSuppressed.WithLabelValues(label).Inc()
	}
}

// RecordAnnouncementSent counts one outgoing announcement RPC.
func (r *Registry) RecordAnnouncementSent(id domain.ServiceID, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.AnnouncementsSent.WithLabelValues(serviceLabel(id), result).Inc()
}

// RecordRoute counts one routing decision.
func (r *Registry) RecordRoute(id domain.ServiceID, outcome string) {
	r.MessagesRouted.WithLabelValues(serviceLabel(id), outcome).Inc()
}

// ObserveHook records a completed bootstrap.
func (r *Registry) ObserveHook(d time.Duration) {
	r.HooksTotal.Inc()
	r.HookDuration.Observe(d.Seconds())
}

// SetNeighbors sets the neighbour gauge.
func (r *Registry) SetNeighbors(n int) {
	r.Neighbors.Set(float64(n))
}

// ObserveRPC records one handled RPC.
func (r *Registry) ObserveRPC(procedure, code string, d time.Duration) {
	r.RPCDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
