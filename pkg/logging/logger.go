// Package logging configures zerolog for the scraper binaries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names attached to loggers as the "component" field.
const (
	ComponentFetchService = "fetch-service"
	ComponentRunner       = "runner"
	ComponentServer       = "server"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr so stdout stays free for results.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-item detail
//   - Recipe rejected by the rating or ratings count filter
//   - Page cache hits
//   - Worker completion
//
// Info: operation milestones
//   - Script launched / done, resolved filter
//   - Scrape started / finished with the number of recipes
//
// Warn: degraded but continuing
//   - No result list on a page
//   - Page task failed (fetch error, timeout)
//   - Card skipped because it could not be extracted
//   - Rate limit cool-down entered, cache errors
//
// Error: the run cannot deliver what was asked
//   - Invalid arguments
//   - Result hand-off failed
//
// Context Fields:
//   - query: searched recipe name
//   - page, offset: page index and source offset
//   - rating, ratings_count: values of a rejected card
//   - numberOfRecipesFound: size of the merged result
//   - status_code, error_class: HTTP failure details
