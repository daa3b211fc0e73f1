// Package cache provides a Redis-backed cache of rendered search pages.
//
// Search result pages change slowly, and scraping the same (query, offset)
// pair twice within a short window is wasted load on the recipe source.
// The page client reads through this cache before hitting the network.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.PageKey{Source: "www.allrecipes.com", Query: "pasta", Offset: 24}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch the page, then
//		entry, _ = cache.ResponseToEntry(resp, 10*time.Minute)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Expiry
//
// An entry lives for the configured TTL, shortened to the response Expires
// header when the source asks for less. Redis drops the key when the entry
// expires; Get also treats a stale entry as a miss.
//
// # Metrics
//
//   - recipe_cache_hits_total - Cache hits
//   - recipe_cache_misses_total - Cache misses
//   - recipe_cache_errors_total{operation} - Cache operation errors
package cache
