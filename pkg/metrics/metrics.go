// Package metrics is the catalogue of the scraper's Prometheus metrics.
// All metrics are defined in their respective packages (pagination, extract,
// client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies; this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the scraper.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry the metrics handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Metric describes one catalogued metric.
type Metric struct {
	Name    string
	Package string
	// Labels is empty for metrics without label dimensions.
	Labels []string
}

// Catalogue lists every metric the scraper registers.
var Catalogue = []Metric{
	{Name: "recipe_page_tasks_total", Package: "pagination", Labels: []string{"status"}},
	{Name: "recipe_page_task_duration_seconds", Package: "pagination"},
	{Name: "recipe_page_tasks_in_flight", Package: "pagination"},

	{Name: "recipe_items_total", Package: "extract", Labels: []string{"outcome"}},

	{Name: "recipe_fetch_requests_total", Package: "client", Labels: []string{"status"}},
	{Name: "recipe_fetch_duration_seconds", Package: "client"},
	{Name: "recipe_fetch_errors_total", Package: "client", Labels: []string{"class"}},
	{Name: "recipe_fetch_retries_total", Package: "client"},
	{Name: "recipe_renderer_sessions_open", Package: "client"},

	{Name: "recipe_cache_hits_total", Package: "cache"},
	{Name: "recipe_cache_misses_total", Package: "cache"},
	{Name: "recipe_cache_errors_total", Package: "cache", Labels: []string{"operation"}},

	{Name: "recipe_rate_limit_cooldowns_total", Package: "ratelimit"},
	{Name: "recipe_rate_limit_blocked_requests_total", Package: "ratelimit"},
	{Name: "recipe_rate_limit_wait_seconds", Package: "ratelimit"},
}

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Example Prometheus Queries:
//
//   # Failed page ratio
//   sum(rate(recipe_page_tasks_total{status="failed"}[5m])) /
//   sum(rate(recipe_page_tasks_total[5m]))
//
//   # Items dropped by the filters
//   sum by (outcome) (rate(recipe_items_total{outcome=~".*_rejected"}[5m]))
//
//   # Cache Hit Rate
//   sum(rate(recipe_cache_hits_total[5m])) /
//   (sum(rate(recipe_cache_hits_total[5m])) + sum(rate(recipe_cache_misses_total[5m])))
//
//   # Source throttling
//   increase(recipe_rate_limit_cooldowns_total[1h]) > 0
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(recipe_fetch_duration_seconds_bucket[5m]))
