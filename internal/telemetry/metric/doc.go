// Package metric provides Prometheus metrics for meshp2p.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, overlay counters and HTTP handler
//   - collector.go: scrape-time collector for per-service participant state
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
