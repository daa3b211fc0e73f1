// Package app wires configuration into a ready fetch service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/recipe-scraper/internal/config"
	"github.com/Sternrassler/recipe-scraper/pkg/cache"
	"github.com/Sternrassler/recipe-scraper/pkg/client"
	"github.com/Sternrassler/recipe-scraper/pkg/extract"
	"github.com/Sternrassler/recipe-scraper/pkg/logging"
	"github.com/Sternrassler/recipe-scraper/pkg/pagination"
	"github.com/Sternrassler/recipe-scraper/pkg/ratelimit"
	"github.com/Sternrassler/recipe-scraper/pkg/service"
	"github.com/redis/go-redis/v9"
)

// App holds the wired components of one process.
type App struct {
	Config   config.Config
	Service  *service.FetchService
	Renderer *client.Renderer
	// Redis is nil when REDIS_URL is unset.
	Redis *redis.Client
}

// SetupLogging configures the global logger from cfg. Call it before New so
// that components pick up the configured logger.
func SetupLogging(cfg config.Config) {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
}

// New builds the scraping stack described by cfg. Redis is pinged when
// configured.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	if opts != nil {
		a.Redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			a.Redis.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}

	clientCfg := client.DefaultConfig(cfg.UserAgent)
	clientCfg.BaseURL = cfg.SourceBaseURL
	clientCfg.RequestTimeout = cfg.RequestTimeout()
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.RateLimit = ratelimit.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RateBurst,
	}
	if a.Redis != nil {
		clientCfg.Redis = a.Redis
		if cfg.CacheTTL() > 0 {
			clientCfg.Cache = cache.NewManager(a.Redis)
			clientCfg.CacheTTL = cfg.CacheTTL()
		}
	}

	renderer, err := client.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create page client: %w", err)
	}
	a.Renderer = renderer

	orchestrator := pagination.NewOrchestrator(
		renderer,
		extract.NewExtractor(extract.DefaultSelectors()),
		pagination.Config{
			MaxConcurrency: cfg.MaxConcurrency,
			Timeout:        cfg.PageTimeout(),
		},
	)
	a.Service = service.NewFetchService(orchestrator)

	return a, nil
}

// Close releases the Redis connection.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
