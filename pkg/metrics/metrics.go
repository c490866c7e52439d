// Package metrics exposes the pipeline's Prometheus metrics over HTTP.
// All metrics are defined in their respective packages (client, ratelimit,
// cache, store, pipeline) via promauto and land in the default
// registry; this package serves that registry and documents what is in it.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry the pipeline's metrics register with.
var Registry = prometheus.DefaultRegisterer

// shutdownTimeout bounds graceful shutdown of the metrics server.
const shutdownTimeout = 5 * time.Second

// Handler returns the mux served by Serve: /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Serve listens on addr and serves Handler until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln)
}

// ServeListener serves Handler on ln until ctx is cancelled, then shuts the
// server down gracefully. It returns nil on a clean shutdown.
func ServeListener(ctx context.Context, ln net.Listener) error {
	logger := log.With().Str("component", "metrics").Logger()

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	logger.Info().Msg("Metrics server stopped")
	return nil
}

// Metrics Documentation
//
// Request Pacing Metrics (pkg/ratelimit):
//   - pokepipe_gate_wait_seconds (Histogram): Time spent waiting for a slot and permit
//   - pokepipe_requests_in_flight (Gauge): Upstream requests holding a permit
//
// Request Metrics (pkg/client):
//   - pokepipe_http_requests_total{status} (Counter): Upstream requests by HTTP status
//   - pokepipe_http_request_duration_seconds (Histogram): Upstream request duration
//   - pokepipe_http_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - pokepipe_http_retries_total{error_class} (Counter): Retry attempts by error class
//   - pokepipe_http_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - pokepipe_http_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - pokepipe_cache_hits_total{resource} (Counter): Cache hits by resource
//   - pokepipe_cache_misses_total{resource} (Counter): Cache misses by resource
//   - pokepipe_cache_stored_bytes_total{resource} (Counter): Payload bytes written to the cache
//   - pokepipe_cache_errors_total{operation} (Counter): Cache operation errors
//
// Load Metrics (internal/store):
//   - pokepipe_store_rows_written_total{table} (Counter): Rows inserted or upserted by table
//   - pokepipe_store_load_duration_seconds (Histogram): Per-record load transaction duration
//   - pokepipe_store_load_errors_total (Counter): Failed load transactions
//
// Run Metrics (internal/pipeline):
//   - pokepipe_records_total{outcome} (Counter): Records by outcome
//     (fetched, fetch_failed, transformed, dropped, loaded, error)
//   - pokepipe_run_duration_seconds (Histogram): Run duration
//   - pokepipe_runs_total{status} (Counter): Runs by status (completed, empty, failed, interrupted)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokepipe_cache_hits_total[5m])) /
//   (sum(rate(pokepipe_cache_hits_total[5m])) + sum(rate(pokepipe_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(pokepipe_http_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokepipe_http_request_duration_seconds_bucket[5m]))
//
//   # Drop Ratio
//   sum(pokepipe_records_total{outcome="dropped"}) / sum(pokepipe_records_total{outcome="fetched"})
