package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// ServiceStat is the scrape-time view of one overlay service.
type ServiceStat struct {
	ID            domain.ServiceID
	Participants  int
	Participating bool
}

// ServiceSource reports the current services of a node.
type ServiceSource interface {
	ServiceStats() []ServiceStat
}

// Collector exports per-service participant state at scrape time.
type Collector struct {
	source        ServiceSource
	participants  *prometheus.Desc
	participating *prometheus.Desc
	services      *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source ServiceSource) *Collector {
	return &Collector{
		source: source,
		participants: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "service", "participants"),
			"Known participant records per service.",
			[]string{"service"}, nil),
		participating: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "service", "participating"),
			"1 if this node participates in the service.",
			[]string{"service"}, nil),
		services: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "services"),
			"Services known to this node.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.participants
	ch <- c.participating
	ch <- c.services
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.ServiceStats()
	ch <- prometheus.MustNewConstMetric(c.services, prometheus.GaugeValue, float64(len(stats)))

	for _, s := range stats {
		label := serviceLabel(s.ID)
		ch <- prometheus.MustNewConstMetric(c.participants, prometheus.GaugeValue,
			float64(s.Participants), label)

		v := 0.0
		if s.Participating {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.participating, prometheus.GaugeValue, v, label)
	}
}
