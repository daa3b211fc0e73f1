// Command recipe-server exposes recipe searches over HTTP.
//
//	GET /search?name=pasta&page=2&minRating=4&minRatingsCount=50
//
// responds with the JSON list of matching recipes. Invalid arguments answer
// 400 with the validation message, failed searches 502.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/recipe-scraper/internal/app"
	"github.com/Sternrassler/recipe-scraper/internal/config"
	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/logging"
	"github.com/Sternrassler/recipe-scraper/pkg/metrics"
	"github.com/Sternrassler/recipe-scraper/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// searchTimeout bounds a whole search request.
const searchTimeout = 2 * time.Minute

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg)
	logger := logging.NewLogger(logging.ComponentServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build the scraper")
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a.Service, a.Redis),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("source", cfg.SourceBaseURL).
		Str("user_agent", cfg.UserAgent).
		Bool("redis", a.Redis != nil).
		Msg("Starting recipe server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

func newRouter(executor service.Executor, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(redisClient))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/search", searchHandler(executor))
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready when Redis, if configured, answers a ping.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func searchHandler(executor service.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := queryFields(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
		defer cancel()

		recipes, err := executor.Execute(ctx, raw)
		if err != nil {
			var validationErr *domain.DomainValidationError
			if errors.As(err, &validationErr) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Search failed")
			writeError(w, http.StatusBadGateway, "search failed")
			return
		}

		if recipes == nil {
			recipes = []domain.Recipe{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(recipes); err != nil {
			log.Error().Err(err).Msg("Failed to write response")
		}
	}
}

// queryFields maps query parameters to raw filter fields. Values are passed
// as json.Number when numeric so the validator sees numbers, and unknown
// parameters are kept so validation rejects them.
func queryFields(r *http.Request) (domain.Fields, error) {
	raw := domain.Fields{}
	for key, values := range r.URL.Query() {
		if len(values) != 1 {
			return nil, fmt.Errorf("%s must be given once", key)
		}
		value := strings.TrimSpace(values[0])
		if key == domain.FieldName {
			raw[key] = value
			continue
		}
		if n := json.Number(value); isNumber(n) {
			raw[key] = n
		} else {
			raw[key] = value
		}
	}
	return raw, nil
}

func isNumber(n json.Number) bool {
	f, err := n.Float64()
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
