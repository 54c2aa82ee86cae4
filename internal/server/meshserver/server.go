package meshserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address of the mesh RPC endpoint.
	Addr string
	// Registry serves incoming calls. Required.
	Registry *p2p.Registry
	// Metrics defaults to metric.Global().
	Metrics *metric.Registry
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// ReadHeaderTimeout bounds how long a client may take to send headers.
	ReadHeaderTimeout time.Duration
	// TLS serves HTTPS when set.
	TLS *tls.Config
}

// Server serves the mesh RPC endpoint.
type Server struct {
	cfg        Config
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// New creates a mesh server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the HTTP handler serving the mesh service.
func (s *Server) Handler() http.Handler {
	path, h := meshv1.NewMeshServiceHandler(
		NewHandler(s.cfg.Registry, s.logger),
		connect.WithInterceptors(observeInterceptor(s.cfg.Metrics, s.logger)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}

	go func() {
		s.logger.Info("mesh rpc listening",
			"addr", ln.Addr().String(),
			"tls", s.cfg.TLS != nil)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mesh rpc server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// DialHTTP returns a Dialer creating Connect clients over httpClient that
// identify themselves as self.
func DialHTTP(httpClient *http.Client, self string, opts ...connect.ClientOption) Dialer {
	return dial("http://", httpClient, self, opts)
}

// DialTLS is DialHTTP for neighbours serving HTTPS. httpClient carries the
// TLS configuration.
func DialTLS(httpClient *http.Client, self string, opts ...connect.ClientOption) Dialer {
	return dial("https://", httpClient, self, opts)
}

func dial(scheme string, httpClient *http.Client, self string, opts []connect.ClientOption) Dialer {
	return func(rpcAddr string) p2p.Remote {
		return NewClient(httpClient, scheme+rpcAddr, domain.GatewayID(self), opts...)
	}
}
