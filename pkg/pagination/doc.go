// Package pagination provides parallel batch fetching of PokeAPI detail records.
//
// A list page yields resource ids; every id then needs its own detail request.
// This package fans those requests out over a fixed-size worker pool and
// collects successes and failures without letting one failure stop the rest.
//
// Example usage:
//
//	bf := pagination.NewBatchFetcher[*pokeapi.Pokemon](client.FetchDetail, pagination.DefaultConfig())
//	result := bf.FetchAll(ctx, ids)
//	for _, item := range result.Items {
//		// item.ID, item.Value
//	}
//
// The batch fetcher:
//   - Spawns a worker pool (default 5 workers)
//   - Distributes ids across workers
//   - Reports every id exactly once, as an item or a failure
//   - Returns items sorted by id
//   - Logs progress every 50 records
//
// Request pacing is not this package's concern; the FetchFunc is expected to
// go through a shared ratelimit.Gate.
package pagination
