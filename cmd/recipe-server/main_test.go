package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/recipe-scraper/internal/testutil"
	"github.com/Sternrassler/recipe-scraper/pkg/client"
	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/extract"
	"github.com/Sternrassler/recipe-scraper/pkg/pagination"
	"github.com/Sternrassler/recipe-scraper/pkg/ratelimit"
	"github.com/Sternrassler/recipe-scraper/pkg/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubExecutor struct {
	recipes []domain.Recipe
	err     error
	raw     domain.Fields
}

func (s *stubExecutor) Execute(ctx context.Context, raw domain.Fields) ([]domain.Recipe, error) {
	s.raw = raw
	if _, err := domain.NewFilter(raw); err != nil {
		return nil, err
	}
	return s.recipes, s.err
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready_without_redis", func(t *testing.T) {
		w := httptest.NewRecorder()
		readyHandler(nil)(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	handler := readyHandler(redisClient)

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		mr.Close()

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(&stubExecutor{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(body, "recipe_page_tasks_in_flight") {
		t.Error("Expected metrics output to contain recipe_page_tasks_in_flight")
	}
}

func TestQueryFields(t *testing.T) {
	req := httptest.NewRequest("GET", "/search?name=12&page=2&minRating=4.5&sort=best", nil)

	raw, err := queryFields(req)
	if err != nil {
		t.Fatalf("queryFields() error = %v", err)
	}

	if raw["name"] != "12" {
		t.Errorf("name = %#v, want string \"12\"", raw["name"])
	}
	if raw["page"] != json.Number("2") {
		t.Errorf("page = %#v, want json.Number(2)", raw["page"])
	}
	if raw["minRating"] != json.Number("4.5") {
		t.Errorf("minRating = %#v, want json.Number(4.5)", raw["minRating"])
	}
	if raw["sort"] != "best" {
		t.Errorf("sort = %#v, want \"best\"", raw["sort"])
	}

	if _, err := queryFields(httptest.NewRequest("GET", "/search?name=a&name=b", nil)); err == nil {
		t.Error("repeated parameter should fail")
	}

	raw, _ = queryFields(httptest.NewRequest("GET", "/search?name=x&page=NaN", nil))
	if raw["page"] != "NaN" {
		t.Errorf("page = %#v, NaN must stay a string", raw["page"])
	}
}

func TestSearchEndpoint_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"ok", "/search?name=pasta", nil, http.StatusOK, "[]"},
		{"missing name", "/search?page=2", nil, http.StatusBadRequest, "Validation error: "},
		{"inverted range", "/search?name=x&minRatingsCount=10&maxRatingsCount=5", nil, http.StatusBadRequest, "maxRatingsCount cannot be lower than minRatingsCount"},
		{"unknown parameter", "/search?name=x&sort=best", nil, http.StatusBadRequest, "sort"},
		{"page too large", "/search?name=x&page=1000000000000000000", nil, http.StatusBadRequest, "page must not be greater than 1000"},
		{"infinite page", "/search?name=x&page=1e400", nil, http.StatusBadRequest, "page must be an integer number"},
		{"search failure", "/search?name=x", errors.New("renderer exploded"), http.StatusBadGateway, "search failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&stubExecutor{err: tt.err}, nil)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want containing %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSearchEndpoint_EndToEnd(t *testing.T) {
	site := testutil.NewMockSite()
	defer site.Close()
	site.SetPage(0, testutil.NewCard(5, 80), testutil.NewCard(3, 10), testutil.NewCard(4.5, 60))
	site.SetPage(24, testutil.NewCard(4, 40), testutil.NewCard(5, 200))

	cfg := client.DefaultConfig("recipe-server-test/1.0")
	cfg.BaseURL = site.URL()
	cfg.RateLimit = ratelimit.Config{RequestsPerSecond: 0}
	renderer, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	orch := pagination.NewOrchestrator(renderer, extract.NewExtractor(extract.DefaultSelectors()), pagination.DefaultConfig())
	router := newRouter(service.NewFetchService(orch), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/search?name=pasta&page=2&minRating=4&minRatingsCount=50", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var recipes []domain.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &recipes); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(recipes) != 3 {
		t.Errorf("got %d recipes, want 3", len(recipes))
	}
}
