// Package ratelimit paces outbound PokeAPI requests.
//
// A Gate combines two independent limits:
//   - a minimum interval between request starts (1 / requests-per-second),
//     shared by every caller of the Gate
//   - a ceiling on the number of requests in flight at the same time
//
// The interval throttles dispatch rate, the permit throttles overlap.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokepipe_gate_wait_seconds",
		Help:    "Time spent waiting for a request slot and concurrency permit",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokepipe_requests_in_flight",
		Help: "Number of upstream requests currently holding a concurrency permit",
	})
)

// Config holds the gate limits.
type Config struct {
	// RatePerSecond is the maximum number of request starts per second.
	RatePerSecond int

	// Concurrency is the maximum number of requests in flight.
	Concurrency int
}

// DefaultConfig returns the PokeAPI-friendly defaults.
func DefaultConfig() Config {
	return Config{
		RatePerSecond: 4,
		Concurrency:   5,
	}
}

// Gate enforces the request interval and the concurrency ceiling.
// A single Gate is meant to be shared by every fetch of a run.
type Gate struct {
	limiter  *rate.Limiter
	permits  *semaphore.Weighted
	interval time.Duration
	capacity int
	inFlight atomic.Int64
	logger   zerolog.Logger
}

// NewGate creates a gate. Values below 1 are raised to 1.
func NewGate(cfg Config, logger zerolog.Logger) *Gate {
	if cfg.RatePerSecond < 1 {
		cfg.RatePerSecond = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	interval := time.Second / time.Duration(cfg.RatePerSecond)

	return &Gate{
		// Burst 1: every start reserves the next slot, so waiters queue
		// behind each other instead of bunching up.
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		permits:  semaphore.NewWeighted(int64(cfg.Concurrency)),
		interval: interval,
		capacity: cfg.Concurrency,
		logger:   logger,
	}
}

// Acquire blocks until the caller may start a request. The returned release
// func must be called once the request has finished; calling it more than
// once is harmless.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	if err := g.permits.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire concurrency permit: %w", err)
	}

	waited := time.Since(start)
	gateWaitSeconds.Observe(waited.Seconds())

	current := g.inFlight.Add(1)
	requestsInFlight.Inc()

	g.logger.Debug().
		Dur("waited", waited).
		Int64("in_flight", current).
		Msg("Request slot acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			requestsInFlight.Dec()
			g.permits.Release(1)
		})
	}, nil
}

// Interval returns the minimum spacing between request starts.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Capacity returns the concurrency ceiling.
func (g *Gate) Capacity() int {
	return g.capacity
}

// InFlight returns the number of requests currently holding a permit.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}
