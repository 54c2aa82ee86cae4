package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// Config wires a Handler to the node.
type Config struct {
	// NodeID is reported by the status endpoint.
	NodeID string
	// Topology is the node's route map. Required.
	Topology p2p.Topology
	// Neighbors lists direct neighbours. Required.
	Neighbors p2p.Neighbors
	// Registry holds the services. Required.
	Registry *p2p.Registry
	// Ready reports why the node is not ready yet; nil means ready.
	Ready func() error
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves the ops endpoint.
type Handler struct {
	cfg    Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		cfg:    cfg,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)

	h.mux.HandleFunc("GET /admin/v1/status", h.handleStatus)
	h.mux.HandleFunc("GET /admin/v1/routes", h.handleRoutes)
	h.mux.HandleFunc("GET /admin/v1/services/{id}", h.handleService)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	response := NewResponse(requestID(w), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := NewErrorResponse(requestID(w), code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// requestID returns the id the RequestID middleware put on the response.
func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}

// handleDomainError converts domain errors to HTTP responses.
func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		h.writeError(w, errorCodeToHTTPStatus(de.Code), de.Code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "MESH-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.Contains(code, "-404"):
		return http.StatusNotFound
	case strings.Contains(code, "-400"), strings.Contains(code, "-422"):
		return http.StatusBadRequest
	case strings.Contains(code, "-503"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
