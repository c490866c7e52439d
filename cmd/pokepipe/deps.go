package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mgolozar/PokePipeline/internal/config"
	"github.com/mgolozar/PokePipeline/internal/store"
	"github.com/mgolozar/PokePipeline/pkg/cache"
	"github.com/mgolozar/PokePipeline/pkg/client"
	"github.com/mgolozar/PokePipeline/pkg/logging"
	"github.com/mgolozar/PokePipeline/pkg/pokeapi"
	"github.com/mgolozar/PokePipeline/pkg/ratelimit"
)

// newAPIClient wires gate, fetcher and the optional Redis cache into a
// resource client. The returned close func releases the cache connection.
func newAPIClient(ctx context.Context, cfg *config.Config) (*pokeapi.Client, func(), error) {
	logger := logging.NewLogger("pokepipe")

	gate := ratelimit.NewGate(ratelimit.Config{
		RatePerSecond: cfg.RateLimitPerSec,
		Concurrency:   cfg.HTTPConcurrency,
	}, logging.NewLogger("ratelimit"))

	fetcher, err := client.New(client.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Retry:     client.DefaultRetryConfig(),
	}, gate)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	apiCfg := pokeapi.Config{
		BaseURL:  cfg.APIBaseURL,
		CacheTTL: cfg.CacheTTL(),
	}

	closeFn := func() {}
	if cfg.RedisURL != "" {
		mgr, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			// Caching is optional.
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			apiCfg.Cache = mgr
			closeFn = func() { mgr.Close() }
			logger.Info().Dur("ttl", cfg.CacheTTL()).Msg("Response cache enabled")
		}
	}

	api, err := pokeapi.New(fetcher, apiCfg)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("create pokeapi client: %w", err)
	}

	return api, closeFn, nil
}

// openRepository connects to PostgreSQL and returns the repository with its pool.
func openRepository(ctx context.Context, cfg *config.Config) (*store.Repository, *pgxpool.Pool, error) {
	pool, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, nil, err
	}

	repo, err := store.New(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo, pool, nil
}
