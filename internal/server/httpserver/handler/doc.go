// Package handler provides the HTTP handlers of the node's ops endpoint.
//
// Routes:
//
//   - GET /healthz, GET /readyz: probes
//   - GET /admin/v1/status: node identity, neighbours and services
//   - GET /admin/v1/routes: best route to every known position
//   - GET /admin/v1/services/{id}: one participant map
//
// Every JSON response uses the Response envelope.
package handler
