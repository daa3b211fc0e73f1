package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/extract"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PageSize is the number of items per page of the recipe source. Offsets
// sent to the source are multiples of it.
const PageSize = 24

// Prometheus metrics for page tasks.
var (
	pageTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipe_page_tasks_total",
		Help: "Total page fetch+extract tasks by status",
	}, []string{"status"})

	pageTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recipe_page_task_duration_seconds",
		Help:    "Duration of page fetch+extract tasks in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	pageTasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recipe_page_tasks_in_flight",
		Help: "Number of page tasks currently running",
	})
)

// Config holds orchestrator configuration.
type Config struct {
	// MaxConcurrency is the maximum number of page tasks in flight.
	MaxConcurrency int
	// Timeout bounds a single page task (fetch and extraction).
	Timeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        30 * time.Second,
	}
}

// Renderer opens sessions on the recipe source.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session fetches rendered search pages. A session is owned by one Search
// call and closed when it returns.
type Session interface {
	// Fetch renders the search results for query starting at offset.
	Fetch(ctx context.Context, offset int, query string) (extract.Node, error)
	// Close releases the resources held by the session.
	Close() error
}

// PageExtractor turns a rendered page into filtered recipes.
type PageExtractor interface {
	Extract(ctx context.Context, page extract.Node, filter domain.Filter) ([]domain.Recipe, error)
}

// PageResult is the outcome of one page task.
type PageResult struct {
	Index   int
	Offset  int
	Recipes []domain.Recipe
	Error   error
}

// Orchestrator runs the page tasks of a search.
type Orchestrator struct {
	renderer  Renderer
	extractor PageExtractor
	config    Config
	logger    zerolog.Logger
}

// NewOrchestrator creates an orchestrator. Non-positive config values fall
// back to the defaults.
func NewOrchestrator(renderer Renderer, extractor PageExtractor, config Config) *Orchestrator {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Orchestrator{
		renderer:  renderer,
		extractor: extractor,
		config:    config,
		logger:    log.With().Str("component", "orchestrator").Logger(),
	}
}

// Offsets returns the source offsets of the first pages pages.
func Offsets(pages int) []int {
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * PageSize
	}
	return offsets
}

// Search scrapes filter.Page() pages and returns every recipe they yielded.
// Failing pages are logged and contribute nothing; only failing to open a
// session is returned as an error. The order of the result is unspecified.
func (o *Orchestrator) Search(ctx context.Context, filter domain.Filter) ([]domain.Recipe, error) {
	start := time.Now()

	session, err := o.renderer.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open renderer session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to close renderer session")
		}
	}()

	pages := filter.Page()
	workers := o.config.MaxConcurrency
	if workers > pages {
		workers = pages
	}

	o.logger.Info().
		Str("query", filter.Name()).
		Int("pages", pages).
		Int("workers", workers).
		Msg("Starting parallel page scrape")

	pageQueue := make(chan int)
	go func() {
		defer close(pageQueue)
		for i := 0; i < pages; i++ {
			select {
			case pageQueue <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	pageResults := make(chan PageResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go o.worker(ctx, session, filter, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var recipes []domain.Recipe
	failed := 0
	for result := range pageResults {
		if result.Error != nil {
			failed++
			o.logger.Warn().
				Err(result.Error).
				Int("page", result.Index).
				Int("offset", result.Offset).
				Msg("Page task failed")
			continue
		}
		recipes = append(recipes, result.Recipes...)
	}

	o.logger.Info().
		Str("query", filter.Name()).
		Int("pages", pages).
		Int("failed_pages", failed).
		Int("numberOfRecipesFound", len(recipes)).
		Dur("duration", time.Since(start)).
		Msg("Scraping done")

	return recipes, nil
}

// worker processes pages from the queue until it is drained.
func (o *Orchestrator) worker(ctx context.Context, session Session, filter domain.Filter, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for index := range pageQueue {
		results <- o.runTask(ctx, session, filter, index)
		pagesProcessed++
	}

	o.logger.Debug().
		Int("worker_id", workerID).
		Int("pages_processed", pagesProcessed).
		Msg("Worker completed")
}

// runTask fetches and extracts one page under the task timeout. Panics in the
// renderer or extractor are turned into task errors.
func (o *Orchestrator) runTask(ctx context.Context, session Session, filter domain.Filter, index int) (result PageResult) {
	offset := index * PageSize
	result = PageResult{Index: index, Offset: offset}

	pageTasksInFlight.Inc()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Recipes = nil
			result.Error = fmt.Errorf("page task panicked: %v", r)
		}
		pageTasksInFlight.Dec()
		pageTaskDuration.Observe(time.Since(start).Seconds())
		if result.Error != nil {
			pageTasksTotal.WithLabelValues("failed").Inc()
		} else {
			pageTasksTotal.WithLabelValues("ok").Inc()
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	page, err := session.Fetch(taskCtx, offset, filter.Name())
	if err != nil {
		result.Error = fmt.Errorf("fetch offset %d: %w", offset, err)
		return result
	}

	recipes, err := o.extractor.Extract(taskCtx, page, filter)
	if err != nil {
		result.Error = fmt.Errorf("extract offset %d: %w", offset, err)
		return result
	}

	result.Recipes = recipes
	return result
}
