// Package client renders search pages of the recipe source over HTTP with
// request pacing, an optional page cache and error classification. A
// Renderer satisfies pagination.Renderer.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/recipe-scraper/pkg/cache"
	"github.com/Sternrassler/recipe-scraper/pkg/extract"
	"github.com/Sternrassler/recipe-scraper/pkg/pagination"
	"github.com/Sternrassler/recipe-scraper/pkg/ratelimit"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for page fetches.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipe_fetch_requests_total",
		Help: "Total search page fetches by status",
	}, []string{"status"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recipe_fetch_duration_seconds",
		Help:    "Search page fetch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipe_fetch_errors_total",
		Help: "Total search page fetch errors by class",
	}, []string{"class"})

	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipe_fetch_retries_total",
		Help: "Total number of search page fetch retries",
	})

	sessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recipe_renderer_sessions_open",
		Help: "Number of renderer sessions currently open",
	})
)

// DefaultBaseURL is the recipe source.
const DefaultBaseURL = "https://www.allrecipes.com"

// Config holds the renderer configuration.
type Config struct {
	// BaseURL of the recipe source; search pages live under /search.
	BaseURL string

	// User-Agent header sent with every request (REQUIRED).
	UserAgent string

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration

	// MaxRetries is the number of retries for server, rate limit and
	// network errors. Client errors are never retried.
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RateLimit paces requests to the source.
	RateLimit ratelimit.Config

	// Redis, when set, shares the rate limit cool-down across processes.
	Redis *redis.Client

	// Cache, when set, is read before and written after every fetch.
	Cache    *cache.Manager
	CacheTTL time.Duration
}

// DefaultConfig returns a default configuration for the given User-Agent.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		RequestTimeout: 15 * time.Second,
		MaxRetries:     0,
		RetryWaitMin:   500 * time.Millisecond,
		RetryWaitMax:   10 * time.Second,
		RateLimit:      ratelimit.DefaultConfig(),
		CacheTTL:       cache.DefaultTTL,
	}
}

// Renderer opens sessions on the recipe source.
type Renderer struct {
	config  Config
	baseURL *url.URL
	tracker *ratelimit.Tracker
	logger  zerolog.Logger
}

// New creates a new renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	return &Renderer{
		config:  cfg,
		baseURL: baseURL,
		tracker: ratelimit.NewTracker(cfg.RateLimit, cfg.Redis, log.With().Str("component", "rate-limiter").Logger()),
		logger:  log.With().Str("component", "page-client").Logger(),
	}, nil
}

// SearchURL returns the address of the search page for query at offset.
func (r *Renderer) SearchURL(offset int, query string) string {
	u := *r.baseURL
	u.Path = "/search"
	u.RawQuery = url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"q":      []string{query},
	}.Encode()
	return u.String()
}

// Tracker returns the rate limit tracker shared by all sessions.
func (r *Renderer) Tracker() *ratelimit.Tracker {
	return r.tracker
}

// Open starts a session with its own connection pool.
func (r *Renderer) Open(ctx context.Context) (pagination.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transport := cleanhttp.DefaultPooledTransport()

	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient = &http.Client{
		Transport: &pacedTransport{base: transport, tracker: r.tracker, logger: r.logger},
		Timeout:   r.config.RequestTimeout,
	}
	httpClient.RetryMax = r.config.MaxRetries
	httpClient.RetryWaitMin = r.config.RetryWaitMin
	httpClient.RetryWaitMax = r.config.RetryWaitMax
	httpClient.CheckRetry = checkRetry
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = leveledLogger{logger: r.logger}
	httpClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			fetchRetriesTotal.Inc()
		}
	}

	sessionsOpen.Inc()
	r.logger.Debug().Msg("Renderer session opened")

	return &Session{
		renderer:  r,
		http:      httpClient,
		transport: transport,
	}, nil
}

// Session fetches search pages. It is safe for concurrent use.
type Session struct {
	renderer  *Renderer
	http      *retryablehttp.Client
	transport *http.Transport
	closed    atomic.Bool
}

// Fetch renders the search page for query at offset.
func (s *Session) Fetch(ctx context.Context, offset int, query string) (extract.Node, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	r := s.renderer
	key := cache.PageKey{Source: r.baseURL.Host, Query: query, Offset: offset}

	if r.config.Cache != nil {
		entry, err := r.config.Cache.Get(ctx, key)
		switch {
		case err == nil:
			node, perr := parsePage(entry.Body, entry.URL)
			if perr == nil {
				r.logger.Debug().Int("offset", offset).Str("query", query).Msg("Page cache hit")
				fetchRequestsTotal.WithLabelValues("cache_hit").Inc()
				return node, nil
			}
			r.logger.Warn().Err(perr).Msg("Failed to parse cached page")
		case !errors.Is(err, cache.ErrCacheMiss):
			r.logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	pageURL := r.SearchURL(offset, query)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := s.http.Do(req)
	fetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues("network_error").Inc()
		if resp != nil {
			resp.Body.Close()
		}
		return nil, &FetchError{Class: ErrorClassNetwork, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	fetchRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classifyError(resp, nil)
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()
		r.logger.Warn().
			Int("offset", offset).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Search page request error")
		return nil, &FetchError{StatusCode: resp.StatusCode, Class: class, URL: pageURL}
	}

	if r.config.Cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, r.config.CacheTTL)
		if err != nil {
			return nil, &FetchError{StatusCode: resp.StatusCode, Class: ErrorClassNetwork, URL: pageURL, Err: err}
		}
		if err := r.config.Cache.Set(ctx, key, entry); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	base := resp.Request.URL
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", pageURL, err)
	}
	return newDocument(doc, base), nil
}

// Close releases the session's idle connections. Further fetches fail with
// ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.transport.CloseIdleConnections()
	sessionsOpen.Dec()
	s.renderer.logger.Debug().Msg("Renderer session closed")
	return nil
}

func parsePage(body []byte, pageURL string) (extract.Node, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return newDocument(doc, base), nil
}

// checkRetry retries server, rate limit and network errors, never client
// errors, and stops as soon as the context is done.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return shouldRetry(ErrorClassNetwork), nil
	}
	if resp.StatusCode < 400 {
		return false, nil
	}
	return shouldRetry(classifyError(resp, nil)), nil
}

// pacedTransport waits on the rate limit tracker before every attempt and
// feeds every response back into it.
type pacedTransport struct {
	base    http.RoundTripper
	tracker *ratelimit.Tracker
	logger  zerolog.Logger
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.tracker.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.tracker.UpdateFromResponse(req.Context(), resp); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to update rate limit state")
	}
	return resp, nil
}

// leveledLogger routes retryablehttp logs to zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
