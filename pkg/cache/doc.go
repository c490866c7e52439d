// Package cache provides a Redis-backed cache for raw PokeAPI payloads.
//
// PokeAPI data is effectively static, so detail and species documents are
// cached for a fixed TTL. Re-running the pipeline over the same id range then
// costs no upstream requests until the entries expire.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Resource: "pokemon", ID: 25}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from PokeAPI, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, 24*time.Hour))
//	}
//
// # Metrics
//
//   - pokepipe_cache_hits_total{resource} - Cache hits
//   - pokepipe_cache_misses_total{resource} - Cache misses
//   - pokepipe_cache_stored_bytes_total{resource} - Bytes written to Redis
//   - pokepipe_cache_errors_total{operation} - Cache operation errors
//
// Cache failures never fail a fetch; callers log them and fall through to
// the upstream API.
package cache
