// Package client provides the HTTP fetcher used to talk to PokeAPI, with
// request pacing, bounded concurrency and retry with backoff.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mgolozar/PokePipeline/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetcher operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokepipe_http_requests_total",
		Help: "Total upstream requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokepipe_http_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokepipe_http_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Config holds the fetcher configuration.
type Config struct {
	// User-Agent header sent with every request.
	UserAgent string

	// Timeout bounds a single attempt (connect, headers and body).
	Timeout time.Duration

	// Retry policy applied to every Get.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent: "PokePipeline/0.1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs paced, retried GET requests.
type Fetcher struct {
	httpClient *http.Client
	gate       *ratelimit.Gate
	config     Config
	logger     zerolog.Logger
}

// New creates a fetcher that admits requests through gate.
func New(cfg Config, gate *ratelimit.Gate) (*Fetcher, error) {
	if gate == nil {
		return nil, fmt.Errorf("rate limit gate is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %v)", cfg.Timeout)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		gate:   gate,
		config: cfg,
		logger: log.With().Str("component", "fetcher").Logger(),
	}, nil
}

// Get fetches url. Any transport failure or non-2xx status is retried per the
// retry config; the last failure is returned wrapped in ErrRetryExhausted.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	var resp *Response

	err := retryWithBackoff(ctx, f.config.Retry, func(attempt int) error {
		r, err := f.do(ctx, url, attempt)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// do performs a single attempt: wait for the gate, send, read the whole body.
func (f *Fetcher) do(ctx context.Context, url string, attempt int) (*Response, error) {
	release, err := f.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	f.logger.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Executing request")

	startTime := time.Now()
	httpResp, err := f.httpClient.Do(req)
	requestDuration.Observe(time.Since(startTime).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request %s: %w", url, ctxErr)
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		f.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("HTTP request failed")
		return nil, &FetchError{
			URL:        url,
			ErrorClass: ErrorClassNetwork,
			Message:    "transport failure",
			Err:        err,
		}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("read body %s: %w", url, ctxErr)
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("read_error").Inc()
		return nil, &FetchError{
			URL:        url,
			StatusCode: httpResp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(strconv.Itoa(httpResp.StatusCode)).Inc()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		errClass := classifyStatus(httpResp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		f.logger.Warn().
			Str("url", url).
			Int("status", httpResp.StatusCode).
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Msg("Upstream request error")

		return nil, &FetchError{
			URL:        url,
			StatusCode: httpResp.StatusCode,
			ErrorClass: errClass,
			Message:    httpResp.Status,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}, nil
}
