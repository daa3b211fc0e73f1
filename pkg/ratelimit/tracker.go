package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitCoolDownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipe_rate_limit_cooldowns_total",
		Help: "Total number of cool-down windows opened by throttling responses",
	})

	rateLimitBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipe_rate_limit_blocked_requests_total",
		Help: "Total number of requests held back by an open cool-down window",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recipe_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for the rate limiter",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	})
)

// Config holds the token bucket settings.
type Config struct {
	// RequestsPerSecond is the steady request rate. Zero or less disables
	// the bucket; cool-down windows still apply.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once.
	Burst int
}

// DefaultConfig returns the default pacing configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Tracker gates requests to the recipe source.
type Tracker struct {
	limiter *rate.Limiter
	config  Config
	redis   *redis.Client
	logger  zerolog.Logger

	mu           sync.Mutex
	blockedUntil time.Time
}

// NewTracker creates a tracker. With a nil redis client the cool-down state
// is kept in memory; otherwise it is shared through RedisKeyBlockedUntil.
func NewTracker(config Config, redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	return &Tracker{
		limiter: rate.NewLimiter(limit, config.Burst),
		config:  config,
		redis:   redisClient,
		logger:  logger,
	}
}

// GetState returns the current pacing state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	blockedUntil, err := t.loadBlockedUntil(ctx)
	if err != nil {
		return nil, err
	}

	return &State{
		BlockedUntil:      blockedUntil,
		RequestsPerSecond: t.config.RequestsPerSecond,
		Burst:             t.config.Burst,
	}, nil
}

// Wait blocks until an open cool-down window has passed and a token is
// available, or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	state, err := t.GetState(ctx)
	if err != nil {
		// Fall back to the bucket alone when the shared store is unreachable.
		t.logger.Warn().Err(err).Msg("Failed to read rate limit state")
		state = &State{}
	}

	if wait := state.TimeUntilUnblocked(); wait > 0 {
		rateLimitBlockedTotal.Inc()
		t.logger.Debug().
			Dur("wait_duration", wait).
			Msg("Request held by rate limit cool-down")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return t.limiter.Wait(ctx)
}

// UpdateFromResponse opens a cool-down window when resp signals throttling.
// The window lasts for the response's Retry-After, or DefaultCoolDown.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil || !IsThrottling(resp.StatusCode) {
		return nil
	}

	now := time.Now()
	coolDown, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	if !ok {
		coolDown = DefaultCoolDown
	}
	until := now.Add(coolDown)

	if err := t.storeBlockedUntil(ctx, until, coolDown); err != nil {
		return err
	}

	rateLimitCoolDownsTotal.Inc()
	t.logger.Warn().
		Int("status_code", resp.StatusCode).
		Dur("cool_down", coolDown).
		Time("blocked_until", until).
		Msg("Recipe source is throttling, entering cool-down")

	return nil
}

func (t *Tracker) loadBlockedUntil(ctx context.Context) (time.Time, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.blockedUntil, nil
	}

	ms, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get blocked until: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// storeBlockedUntil extends the cool-down window; it never shortens it.
func (t *Tracker) storeBlockedUntil(ctx context.Context, until time.Time, coolDown time.Duration) error {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if until.After(t.blockedUntil) {
			t.blockedUntil = until
		}
		return nil
	}

	current, err := t.loadBlockedUntil(ctx)
	if err != nil {
		return err
	}
	if !until.After(current) {
		return nil
	}

	// The key expires together with the window so stale state never lingers.
	ttl := coolDown
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := t.redis.Set(ctx, RedisKeyBlockedUntil, strconv.FormatInt(until.UnixMilli(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("store blocked until in redis: %w", err)
	}
	return nil
}
