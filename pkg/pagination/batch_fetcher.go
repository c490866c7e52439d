package pagination

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the number of workers.
	MaxConcurrency int
	// Timeout bounds a single record fetch, retries included.
	Timeout time.Duration
	// BufferSize for the id queue and result channels (default: number of ids)
	BufferSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        2 * time.Minute,
	}
}

// FetchFunc fetches a single record by id.
type FetchFunc[T any] func(ctx context.Context, id int) (T, error)

// Item is a successfully fetched record.
type Item[T any] struct {
	ID    int
	Value T
}

// Failure is an id whose fetch failed or never ran because ctx was done.
type Failure struct {
	ID  int
	Err error
}

// Result holds the outcome of FetchAll. Items and Failures are sorted by id.
type Result[T any] struct {
	Items    []Item[T]
	Failures []Failure
}

type fetchResult[T any] struct {
	id    int
	value T
	err   error
}

// BatchFetcher handles parallel fetching of many records.
type BatchFetcher[T any] struct {
	fetch  FetchFunc[T]
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetch FetchFunc[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &BatchFetcher[T]{
		fetch:  fetch,
		config: config,
	}
}

// FetchAll fetches every id using the worker pool. Individual failures are
// collected, not returned; once ctx is done the remaining ids are reported as
// failures carrying ctx.Err() without being fetched.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, ids []int) Result[T] {
	start := time.Now()
	total := len(ids)

	if total == 0 {
		return Result[T]{}
	}

	log.Info().
		Int("total", total).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel fetch")

	bufferSize := bf.config.BufferSize
	if bufferSize <= 0 {
		bufferSize = total
	}

	idQueue := make(chan int, bufferSize)
	results := make(chan fetchResult[T], bufferSize)

	go func() {
		for _, id := range ids {
			idQueue <- id
		}
		close(idQueue)
	}()

	workers := bf.config.MaxConcurrency
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, idQueue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var out Result[T]
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			out.Failures = append(out.Failures, Failure{ID: r.id, Err: r.err})
		} else {
			out.Items = append(out.Items, Item[T]{ID: r.id, Value: r.value})
		}

		if done%50 == 0 {
			log.Info().
				Int("done", done).
				Int("total", total).
				Float64("progress_pct", float64(done)/float64(total)*100).
				Msg("Fetch progress")
		}
	}

	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ID < out.Items[j].ID })
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].ID < out.Failures[j].ID })

	log.Info().
		Int("fetched", len(out.Items)).
		Int("failed", len(out.Failures)).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return out
}

// worker processes ids from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, idQueue <-chan int, results chan<- fetchResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for id := range idQueue {
		if err := ctx.Err(); err != nil {
			results <- fetchResult[T]{id: id, err: err}
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		value, err := bf.fetch(fetchCtx, id)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("pokemon_id", id).
				Msg("Record fetch failed")
		}

		results <- fetchResult[T]{id: id, value: value, err: err}
		processed++
	}

	log.Debug().
		Int("worker_id", workerID).
		Int("processed", processed).
		Msg("Worker completed")
}
