// Package httpserver provides the node's ops HTTP endpoint.
//
// It serves Prometheus metrics, liveness and readiness probes, and the
// read-only admin API implemented in the handler package. Mesh traffic
// does not pass through it; neighbours use the meshserver endpoint.
//
// Middleware chain: Recover, RequestID, RateLimit, AccessLog, and
// NetworkACL on /admin/v1.
package httpserver
