// Package pagination drives the parallel scraping of paginated search results.
//
// The recipe source pages its listing in fixed blocks of PageSize items, so
// page i (0-indexed) lives at offset i*PageSize. The orchestrator opens one
// renderer session per search, runs one fetch+extract task per requested page
// on a bounded worker pool, and merges what every task produced.
//
// Example usage:
//
//	orch := pagination.NewOrchestrator(renderer, extractor, pagination.DefaultConfig())
//	recipes, err := orch.Search(ctx, filter)
//
// The orchestrator:
//   - Opens a single Session and always closes it after the last task settles
//   - Spawns min(MaxConcurrency, pages) workers fed from a page queue
//   - Bounds every task with its own timeout
//   - Logs failed pages and keeps going (best-effort aggregation)
//   - Merges per-task buffers in one collector goroutine
package pagination
