package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	// ContextKeyRequestID carries the request id set by RequestID.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyStartTime carries the time RequestID saw the request.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that middlewares run in the order given.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags every request with an id, reusing X-Request-ID when the
// client sent one, and echoes it in the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = "req-" + ulid.Make().String()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestIDFromContext returns the id set by RequestID, or "".
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// limiterIdle is how long a client bucket survives without requests.
const limiterIdle = 10 * time.Minute

type clientLimiters struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

func (c *clientLimiters) allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastSweep) > time.Minute {
		for k, b := range c.buckets {
			if now.Sub(b.seen) > limiterIdle {
				delete(c.buckets, k)
			}
		}
		c.lastSweep = now
	}

	b, ok := c.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.buckets[ip] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimit gives every client IP its own token bucket of rps tokens per
// second holding up to burst. Requests over the limit get 429.
func RateLimit(rps float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	limiters := &clientLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		buckets:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(getClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "MESH-SYS-4290", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder remembers the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// AccessLog logs each request once it has been served: server errors at
// error level, client errors at warn, the rest at debug.
func AccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			start, ok := r.Context().Value(ContextKeyStartTime).(time.Time)
			if !ok {
				start = time.Now()
			}

			level := slog.LevelDebug
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "ops request",
				slog.String("request_id", GetRequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("client_ip", getClientIP(r)),
			)
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("ops handler panicked",
					"request_id", GetRequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"panic", v)
				writeError(w, http.StatusInternalServerError, "MESH-SYS-5000", "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes the short error body used by the middleware, which
// runs before the handler's envelope is available.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{code, message})
}

// getClientIP returns the host part of the peer address. Forwarding
// headers are not trusted.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
