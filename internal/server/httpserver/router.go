package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/meshp2p-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the probes and the admin API.
	Handler *handler.Handler

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for /admin/v1 (empty = no restriction).
	AdminAllowList []string

	// RateLimit is the per-IP request rate; 0 disables limiting.
	RateLimit float64

	// RateBurst is the per-IP burst. Defaults to the rate rounded up.
	RateBurst int
}

// NewRouter builds the ops endpoint.
//
// Order: Recover -> RequestID -> RateLimit -> AccessLog -> [NetworkACL] -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	common := []Middleware{Recover(cfg.Logger), RequestID()}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = int(cfg.RateLimit + 0.999)
		}
		common = append(common, RateLimit(cfg.RateLimit, burst))
	}
	common = append(common, AccessLog(cfg.Logger))

	mux := http.NewServeMux()

	probes := Chain(cfg.Handler, common...)
	mux.Handle("GET /healthz", probes)
	mux.Handle("GET /readyz", probes)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, common...))
	}

	admin := append(append([]Middleware(nil), common...), NetworkACL(&NetworkACLConfig{
		AllowList: cfg.AdminAllowList,
		Logger:    cfg.Logger,
	}))
	mux.Handle("/admin/v1/", Chain(cfg.Handler, admin...))

	return mux
}
