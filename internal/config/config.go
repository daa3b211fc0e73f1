// Package config loads the scraper's runtime configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// DefaultUserAgent is sent when USER_AGENT is unset.
const DefaultUserAgent = "recipe-scraper/0.1.0"

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	LogLevel  string
	LogPretty bool

	SourceBaseURL string
	UserAgent     string

	MaxConcurrency     int
	PageTimeoutSecs    int
	RequestTimeoutSecs int
	MaxRetries         int
	RequestsPerSecond  float64
	RateBurst          int

	// RedisURL enables the page cache, shared rate limit state and the
	// Redis result sink. Empty disables Redis.
	RedisURL     string
	CacheTTLSecs int

	Argument       string
	ArgumentFile   string
	ResultFile     string
	ResultRedisKey string
	ResultTTLSecs  int

	Port string
}

// LoadEnvFile loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvBool("LOG_PRETTY", false),
		SourceBaseURL:      getEnv("SOURCE_BASE_URL", "https://www.allrecipes.com"),
		UserAgent:          getEnv("USER_AGENT", DefaultUserAgent),
		MaxConcurrency:     getEnvInt("MAX_CONCURRENCY", 5),
		PageTimeoutSecs:    getEnvInt("PAGE_TIMEOUT_SECS", 30),
		RequestTimeoutSecs: getEnvInt("REQUEST_TIMEOUT_SECS", 15),
		MaxRetries:         getEnvInt("MAX_RETRIES", 0),
		RequestsPerSecond:  getEnvFloat("REQUESTS_PER_SECOND", 5),
		RateBurst:          getEnvInt("RATE_BURST", 5),
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTLSecs:       getEnvInt("CACHE_TTL_SECS", 600),
		Argument:           os.Getenv("ARGUMENT"),
		ArgumentFile:       os.Getenv("ARGUMENT_FILE"),
		ResultFile:         os.Getenv("RESULT_FILE"),
		ResultRedisKey:     os.Getenv("RESULT_REDIS_KEY"),
		ResultTTLSecs:      getEnvInt("RESULT_TTL_SECS", 3600),
		Port:               getEnv("PORT", "8080"),
	}

	if cfg.MaxConcurrency <= 0 {
		return Config{}, fmt.Errorf("MAX_CONCURRENCY must be positive")
	}
	if cfg.PageTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("PAGE_TIMEOUT_SECS must be positive")
	}
	if cfg.RequestTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT_SECS must be positive")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("MAX_RETRIES must be non-negative")
	}
	if cfg.RequestsPerSecond < 0 {
		return Config{}, fmt.Errorf("REQUESTS_PER_SECOND must be non-negative")
	}
	if cfg.RateBurst <= 0 {
		return Config{}, fmt.Errorf("RATE_BURST must be positive")
	}
	if cfg.CacheTTLSecs < 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECS must be non-negative")
	}
	if cfg.ResultTTLSecs <= 0 {
		return Config{}, fmt.Errorf("RESULT_TTL_SECS must be positive")
	}
	if cfg.RedisURL != "" {
		if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
			return Config{}, fmt.Errorf("REDIS_URL is invalid: %w", err)
		}
	}
	if cfg.ResultRedisKey != "" && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("RESULT_REDIS_KEY requires REDIS_URL")
	}

	return cfg, nil
}

// PageTimeout bounds one page task.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutSecs) * time.Second
}

// RequestTimeout bounds one HTTP attempt.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// CacheTTL is the page cache lifetime; zero disables the page cache.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// ResultTTL is the lifetime of a result stored in Redis.
func (c Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSecs) * time.Second
}

// RedisOptions parses RedisURL. It returns nil when Redis is disabled.
func (c Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	return redis.ParseURL(c.RedisURL)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
