// observability.go adapts three teacher policies from svrcore/policies -- requestlogging.go,
// metrics.go, and shutdown.go -- from svrcore's HTTP-middleware Policy shape
// (func(context.Context, *ReqRes) error) to plain net/http middleware wrapping the Streamable
// HTTP Handler, and swaps the teacher's hand-rolled rate counters for Prometheus client_golang
// collectors (one of the domain-stack libraries wired in by SPEC_FULL.md rather than dropped).
package streamhttp

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpcore_http_requests_total",
		Help: "Total Streamable HTTP requests by method and status class.",
	}, []string{"method", "status_class"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "mcpcore_http_request_duration_seconds",
		Help: "Streamable HTTP request latency.",
	})
)

// NewRequestLogMiddleware logs request start/end the way the teacher's
// policies.NewRequestLogPolicy does, adapted from a Policy closure to an http.Handler wrapper.
func NewRequestLogMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := time.Now().UnixNano()
		lrw := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		logger.Info("-> ", slog.Int64("id", id), slog.String("method", r.Method), slog.String("url", r.URL.String()))
		next.ServeHTTP(lrw, r)
		logger.Info("<- ", slog.Int64("id", id), slog.String("method", r.Method), slog.String("url", r.URL.String()), slog.Int("statusCode", lrw.statusCode))
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapturingWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// NewMetricsMiddleware records the same "golden signals" the teacher's NewMetricsPolicy logs
// by hand, as Prometheus collectors instead of in-process rate counters.
func NewMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		requestDuration.Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(r.Method, statusClass(lrw.statusCode)).Inc()
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// MetricsHandler exposes the registered collectors for scraping, per config.Config's
// METRICS_ADDR.
func MetricsHandler() http.Handler { return promhttp.Handler() }

// ShutdownManager is adapted from the teacher's svrcore/policies.ShutdownMgr: a
// context cancelled on SIGINT/SIGTERM, a health probe that fails once shutdown begins, and an
// in-flight request counter the server drains before exiting.
type ShutdownManager struct {
	context.Context
	cancel           context.CancelFunc
	shuttingDown     atomic.Bool
	inflightRequests sync.WaitGroup
}

// NewShutdownManager installs a signal handler and returns a manager whose embedded Context is
// cancelled when SIGINT or SIGTERM arrives.
func NewShutdownManager() *ShutdownManager {
	sm := &ShutdownManager{}
	sm.Context, sm.cancel = context.WithCancel(context.Background())
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		sm.shuttingDown.Store(true)
		sm.cancel()
	}()
	return sm
}

// ShuttingDown reports whether a shutdown signal has been observed.
func (sm *ShutdownManager) ShuttingDown() bool { return sm.shuttingDown.Load() }

// TrackRequest wraps next so in-flight requests are counted; call Drain before process exit.
func (sm *ShutdownManager) TrackRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.inflightRequests.Add(1)
		defer sm.inflightRequests.Done()
		next.ServeHTTP(w, r)
	})
}

// Drain blocks until every tracked in-flight request completes or ctx is cancelled.
func (sm *ShutdownManager) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() { sm.inflightRequests.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// HealthHandler returns 503 once shutdown has begun (per
// https://learn.microsoft.com/en-us/azure/load-balancer/load-balancer-custom-probe-overview,
// as cited in the teacher's HealthProbe), else 200.
func (sm *ShutdownManager) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.ShuttingDown() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
