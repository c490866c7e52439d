// Package pipeline runs the extract, transform, validate and load stages for
// a range of pokemon and aggregates the outcome into a Summary.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mgolozar/PokePipeline/internal/quality"
	"github.com/mgolozar/PokePipeline/internal/store"
	"github.com/mgolozar/PokePipeline/internal/transform"
	"github.com/mgolozar/PokePipeline/pkg/pagination"
	"github.com/mgolozar/PokePipeline/pkg/pokeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pipeline runs.
var (
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokepipe_records_total",
		Help: "Records by pipeline outcome",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokepipe_run_duration_seconds",
		Help:    "Wall-clock duration of a pipeline run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokepipe_runs_total",
		Help: "Pipeline runs by status",
	}, []string{"status"})
)

var (
	// ErrResolveIDs is returned when the id list could not be fetched. It is
	// the only failure that aborts a run.
	ErrResolveIDs = errors.New("resolve pokemon ids")

	// ErrInterrupted is returned alongside a partial Summary when ctx is
	// cancelled mid-run.
	ErrInterrupted = errors.New("run interrupted")
)

// Source lists and fetches extraction records. *pokeapi.Client implements it.
type Source interface {
	ListIDs(ctx context.Context, limit, offset int) ([]int, error)
	FetchDetail(ctx context.Context, id int) (*pokeapi.Pokemon, error)
}

// Loader persists a batch. *store.Repository implements it.
type Loader interface {
	Load(ctx context.Context, b transform.Batch) (store.LoadMetrics, error)
}

// Config holds runner settings.
type Config struct {
	// Concurrency is the number of detail fetch workers.
	Concurrency int

	// FetchTimeout bounds one record fetch including retries.
	FetchTimeout time.Duration

	// EnableEnrich computes derived fields before validation.
	EnableEnrich bool

	// DryRun skips the load stage.
	DryRun bool
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  5,
		FetchTimeout: pagination.DefaultConfig().Timeout,
		EnableEnrich: true,
	}
}

// Request selects the records of a run. When IDs is non-empty Limit and
// Offset are ignored and no list request is made.
type Request struct {
	Limit  int
	Offset int
	IDs    []int
}

// Summary is the outcome of a run. Fetch failures are counted in FetchFailed
// only; Errors counts records that were fetched but failed to transform or load.
type Summary struct {
	RunID       string
	Fetched     int
	FetchFailed int
	Transformed int
	Loaded      int
	Dropped     int
	Errors      int
	Duration    time.Duration
	Load        store.LoadMetrics
}

// MarshalJSON renders the summary with the duration in seconds.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID       string            `json:"run_id"`
		Fetched     int               `json:"fetched"`
		FetchFailed int               `json:"fetch_failed"`
		Transformed int               `json:"transformed"`
		Loaded      int               `json:"loaded"`
		Dropped     int               `json:"dropped"`
		Errors      int               `json:"errors"`
		DurationSec float64           `json:"duration_sec"`
		Load        store.LoadMetrics `json:"load"`
	}{
		RunID:       s.RunID,
		Fetched:     s.Fetched,
		FetchFailed: s.FetchFailed,
		Transformed: s.Transformed,
		Loaded:      s.Loaded,
		Dropped:     s.Dropped,
		Errors:      s.Errors,
		DurationSec: s.Duration.Seconds(),
		Load:        s.Load,
	})
}

// Runner executes pipeline runs.
type Runner struct {
	source Source
	loader Loader
	config Config
}

// NewRunner creates a runner. loader may be nil only in dry-run mode.
func NewRunner(source Source, loader Loader, cfg Config) (*Runner, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if loader == nil && !cfg.DryRun {
		return nil, fmt.Errorf("loader is required unless dry-run is enabled")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}

	return &Runner{
		source: source,
		loader: loader,
		config: cfg,
	}, nil
}

// Run resolves ids, fetches every record concurrently, then maps, enriches,
// validates and loads them one at a time in id order. Per-record failures are
// counted, never returned.
func (r *Runner) Run(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}

	logger := log.With().
		Str("component", "pipeline").
		Str("run_id", summary.RunID).
		Logger()

	finish := func(status string) {
		summary.Duration = time.Since(start)
		runDuration.Observe(summary.Duration.Seconds())
		runsTotal.WithLabelValues(status).Inc()
	}

	ids := req.IDs
	if len(ids) == 0 {
		logger.Info().
			Int("limit", req.Limit).
			Int("offset", req.Offset).
			Msg("Resolving pokemon ids")

		var err error
		ids, err = r.source.ListIDs(ctx, req.Limit, req.Offset)
		if err != nil {
			finish("failed")
			logger.Error().Err(err).Msg("Could not resolve pokemon ids")
			return summary, fmt.Errorf("%w: %w", ErrResolveIDs, err)
		}
	}

	if len(ids) == 0 {
		finish("empty")
		logger.Warn().Msg("No pokemon ids to process")
		return summary, nil
	}

	logger.Info().Int("ids", len(ids)).Msg("Extracting pokemon")

	bf := pagination.NewBatchFetcher[*pokeapi.Pokemon](r.source.FetchDetail, pagination.Config{
		MaxConcurrency: r.config.Concurrency,
		Timeout:        r.config.FetchTimeout,
	})
	extracted := bf.FetchAll(ctx, ids)

	summary.Fetched = len(extracted.Items)
	summary.FetchFailed = len(extracted.Failures)
	recordsTotal.WithLabelValues("fetched").Add(float64(summary.Fetched))
	recordsTotal.WithLabelValues("fetch_failed").Add(float64(summary.FetchFailed))

	for _, f := range extracted.Failures {
		logger.Error().Err(f.Err).Int("pokemon_id", f.ID).Msg("Extraction failed")
	}

	for _, item := range extracted.Items {
		if ctx.Err() != nil {
			break
		}
		r.process(ctx, item.Value, &summary, logger.With().Int("pokemon_id", item.ID).Logger())
	}

	if err := ctx.Err(); err != nil {
		finish("interrupted")
		logger.Warn().
			Int("fetched", summary.Fetched).
			Int("loaded", summary.Loaded).
			Msg("Run interrupted")
		return summary, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	finish("completed")

	logger.Info().
		Int("fetched", summary.Fetched).
		Int("fetch_failed", summary.FetchFailed).
		Int("transformed", summary.Transformed).
		Int("loaded", summary.Loaded).
		Int("dropped", summary.Dropped).
		Int("errors", summary.Errors).
		Float64("duration_sec", summary.Duration.Seconds()).
		Msg("Pipeline complete")

	return summary, nil
}

// process takes one record through map, enrich, validate and load, updating
// the summary counters.
func (r *Runner) process(ctx context.Context, rec *pokeapi.Pokemon, summary *Summary, logger zerolog.Logger) {
	b, result, err := Transform(rec, r.config.EnableEnrich)
	if err != nil {
		if errors.Is(err, transform.ErrDrop) {
			logger.Warn().Err(err).Msg("Pokemon dropped")
			summary.Dropped++
			recordsTotal.WithLabelValues("dropped").Inc()
			return
		}
		logger.Error().Err(err).Msg("Transform failed")
		summary.Errors++
		recordsTotal.WithLabelValues("error").Inc()
		return
	}

	summary.Transformed++
	recordsTotal.WithLabelValues("transformed").Inc()

	if !result.OK {
		logger.Warn().Strs("reasons", result.Reasons).Msg("Pokemon failed quality checks")
		summary.Dropped++
		recordsTotal.WithLabelValues("dropped").Inc()
		return
	}

	if r.config.DryRun {
		logger.Debug().Msg("Dry run, skipping load")
		return
	}

	m, err := r.loader.Load(ctx, b)
	if err != nil {
		logger.Error().Err(err).Msg("Load failed")
		summary.Errors++
		recordsTotal.WithLabelValues("error").Inc()
		return
	}

	summary.Loaded++
	summary.Load.Add(m)
	recordsTotal.WithLabelValues("loaded").Inc()
}

// Transform maps rec, optionally enriches it and validates the result. A
// *transform.DropError is returned for records excluded by mapping policy.
func Transform(rec *pokeapi.Pokemon, enrich bool) (transform.Batch, quality.Result, error) {
	b, err := transform.ToBatch(rec)
	if err != nil {
		return transform.Batch{}, quality.Result{}, err
	}

	if enrich {
		b = transform.Enrich(b)
	}

	return b, quality.Validate(b), nil
}
