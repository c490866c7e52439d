// Package pokeapi is the resource client for the PokeAPI REST endpoints the
// pipeline reads: the pokemon list, pokemon detail, species and evolution chain.
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mgolozar/PokePipeline/pkg/cache"
	"github.com/mgolozar/PokePipeline/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// ErrParse is returned when a payload lacks a required field or is not JSON.
// Parse errors are never retried.
var ErrParse = errors.New("pokeapi: parse error")

// Getter performs a paced, retried GET. *client.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string) (*client.Response, error)
}

// Cache stores raw payloads. *cache.Manager implements it.
type Cache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, entry *cache.Entry) error
}

// Config holds the resource client configuration.
type Config struct {
	// BaseURL is the API root without trailing slash.
	BaseURL string

	// Cache is optional; nil disables payload caching.
	Cache Cache

	// CacheTTL is how long cached payloads stay valid.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration pointing at the public API, without cache.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		CacheTTL: 24 * time.Hour,
	}
}

// Client reads PokeAPI resources through a Getter.
type Client struct {
	getter  Getter
	baseURL string
	cache   Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

// New creates a resource client.
func New(getter Getter, cfg Config) (*Client, error) {
	if getter == nil {
		return nil, fmt.Errorf("getter is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if cfg.Cache != nil && cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be > 0 when cache is enabled (got %v)", cfg.CacheTTL)
	}

	return &Client{
		getter:  getter,
		baseURL: baseURL,
		cache:   cfg.Cache,
		ttl:     cfg.CacheTTL,
		logger:  log.With().Str("component", "pokeapi").Logger(),
	}, nil
}

// BaseURL returns the API root used by the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListIDs returns the ids of one page of the pokemon list, ascending.
// Entries whose url carries no trailing id are skipped; duplicates are kept.
func (c *Client) ListIDs(ctx context.Context, limit, offset int) ([]int, error) {
	url := fmt.Sprintf("%s/pokemon?limit=%d&offset=%d", c.baseURL, limit, offset)

	resp, err := c.getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("list pokemon (limit=%d offset=%d): %w", limit, offset, err)
	}

	ids, err := parseListIDs(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list pokemon (limit=%d offset=%d): %w", limit, offset, err)
	}

	sort.Ints(ids)

	c.logger.Debug().
		Int("limit", limit).
		Int("offset", offset).
		Int("ids", len(ids)).
		Msg("Resolved pokemon ids")

	return ids, nil
}

// FetchDetail fetches and maps /pokemon/{id}/.
func (c *Client) FetchDetail(ctx context.Context, id int) (*Pokemon, error) {
	return fetchResource(ctx, c, "pokemon", id, parsePokemon)
}

// FetchSpecies fetches /pokemon-species/{id}/.
func (c *Client) FetchSpecies(ctx context.Context, id int) (*Species, error) {
	return fetchResource(ctx, c, "pokemon-species", id, parseSpecies)
}

// FetchEvolutionChain fetches /evolution-chain/{id}/.
func (c *Client) FetchEvolutionChain(ctx context.Context, id int) (*EvolutionChain, error) {
	return fetchResource(ctx, c, "evolution-chain", id, parseEvolutionChain)
}

// fetchResource reads {base}/{resource}/{id}/ and parses it. A configured
// cache is consulted first; only payloads that parse are written back.
func fetchResource[T any](ctx context.Context, c *Client, resource string, id int, parse func([]byte) (T, error)) (T, error) {
	var zero T
	key := cache.Key{Resource: resource, ID: id}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			if v, perr := parse(entry.Data); perr == nil {
				c.logger.Debug().Str("key", key.String()).Msg("Cache hit")
				return v, nil
			}
			c.logger.Warn().Str("key", key.String()).Msg("Cached payload unparsable, refetching")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed")
		}
	}

	url := fmt.Sprintf("%s/%s/%d/", c.baseURL, resource, id)
	resp, err := c.getter.Get(ctx, url)
	if err != nil {
		return zero, fmt.Errorf("fetch %s %d: %w", resource, id, err)
	}

	v, err := parse(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("%s %d: %w", resource, id, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(resp.Body, c.ttl)); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache write failed")
		}
	}

	return v, nil
}
