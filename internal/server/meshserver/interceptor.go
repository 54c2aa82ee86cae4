package meshserver

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/telemetry/metric"
)

// observeInterceptor times every handled mesh RPC, records it in the
// registry and logs it. NotFound is the normal "no participant" answer
// of the overlay, so only other failures log at warn.
func observeInterceptor(metrics *metric.Registry, logger *slog.Logger) connect.UnaryInterceptorFunc {
	if metrics == nil {
		metrics = metric.Global()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			procedure := req.Spec().Procedure
			metrics.ObserveRPC(procedure, code, elapsed)

			level := slog.LevelDebug
			if err != nil && connect.CodeOf(err) != connect.CodeNotFound {
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", procedure),
				slog.String("peer", req.Peer().Addr),
				slog.String("gateway", req.Header().Get(meshv1.GatewayHeader)),
				slog.Int64("duration_ms", elapsed.Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(ctx, level, "mesh rpc", attrs...)
			return resp, err
		}
	}
}
