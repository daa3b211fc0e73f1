package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/recipe-scraper/internal/testutil"
	"github.com/alicebob/miniredis/v2"
)

type resultItem struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	RatingsCount float64 `json:"ratingsCount"`
	URL          string  `json:"url"`
}

func setupSite(t *testing.T) *testutil.MockSite {
	t.Helper()
	site := testutil.NewMockSite()
	t.Cleanup(site.Close)

	site.SetPage(0, testutil.NewCard(5, 80), testutil.NewCard(3, 10), testutil.NewCard(4.5, 60))
	site.SetPage(24, testutil.NewCard(4, 40), testutil.NewCard(5, 200))

	t.Setenv("SOURCE_BASE_URL", site.URL())
	t.Setenv("REQUESTS_PER_SECOND", "0")
	t.Setenv("REDIS_URL", "")
	t.Setenv("RESULT_REDIS_KEY", "")
	t.Setenv("RESULT_FILE", "")
	t.Setenv("ARGUMENT", "")
	t.Setenv("ARGUMENT_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	return site
}

func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "none.env")
}

func TestRun_WritesResultToStdout(t *testing.T) {
	setupSite(t)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	code := run(context.Background(), []string{
		noEnvFile(t),
		"-argument", `{"name":"pasta","page":2,"minRating":4,"minRatingsCount":50}`,
	}, stdout, stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0 (stderr: %s)", code, stderr)
	}

	var items []resultItem
	if err := json.Unmarshal(stdout.Bytes(), &items); err != nil {
		t.Fatalf("stdout is not a JSON result: %v\n%s", err, stdout)
	}
	if len(items) != 3 {
		t.Fatalf("got %d recipes, want 3", len(items))
	}
	for _, it := range items {
		if it.Rating < 4 || it.RatingsCount < 50 {
			t.Errorf("recipe %+v does not satisfy the filter", it)
		}
	}
}

func TestRun_InvalidArgumentsExitOne(t *testing.T) {
	site := setupSite(t)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	code := run(context.Background(), []string{noEnvFile(t), "-argument", `{"name":"pasta","minRating":5,"maxRating":1}`}, stdout, stderr)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if site.RequestCount() != 0 {
		t.Errorf("invalid arguments triggered %d requests", site.RequestCount())
	}
	if stdout.Len() != 0 {
		t.Errorf("no result expected, got %q", stdout)
	}
}

func TestRun_ArgumentFileAndResultFile(t *testing.T) {
	setupSite(t)
	dir := t.TempDir()
	argPath := filepath.Join(dir, "args.yaml")
	resultPath := filepath.Join(dir, "result.json")
	if err := os.WriteFile(argPath, []byte("name: pasta\nminRating: 5\n"), 0o600); err != nil {
		t.Fatalf("write args: %v", err)
	}

	code := run(context.Background(), []string{noEnvFile(t), "-argument-file", argPath, "-result-file", resultPath}, &bytes.Buffer{}, &bytes.Buffer{})
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var items []resultItem
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(items) != 1 || items[0].Rating != 5 {
		t.Errorf("result = %+v, want the single 5-star recipe of page 1", items)
	}
}

func TestRun_SinkFailureStillExitsZero(t *testing.T) {
	setupSite(t)
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "result.json")

	code := run(context.Background(), []string{noEnvFile(t), "-argument", `{"name":"pasta"}`, "-result-file", missing}, &bytes.Buffer{}, &bytes.Buffer{})
	if code != 0 {
		t.Errorf("run() = %d, want 0 when only the result hand-off fails", code)
	}
}

func TestRun_FailedPagesAreOmitted(t *testing.T) {
	site := setupSite(t)
	site.SetResponse(24, testutil.MockResponse{StatusCode: http.StatusInternalServerError})
	stdout := &bytes.Buffer{}

	code := run(context.Background(), []string{noEnvFile(t), "-argument", `{"name":"pasta","page":2}`}, stdout, &bytes.Buffer{})
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	var items []resultItem
	if err := json.Unmarshal(stdout.Bytes(), &items); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("got %d recipes, want the 3 of the first page", len(items))
	}
}

func TestRun_ResultToRedis(t *testing.T) {
	setupSite(t)
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("RESULT_REDIS_KEY", "recipes:result:test")

	code := run(context.Background(), []string{noEnvFile(t), "-argument", `{"name":"pasta"}`}, &bytes.Buffer{}, &bytes.Buffer{})
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	stored, err := mr.Get("recipes:result:test")
	if err != nil {
		t.Fatalf("result not stored in redis: %v", err)
	}
	var items []resultItem
	if err := json.Unmarshal([]byte(stored), &items); err != nil {
		t.Fatalf("decode stored result: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("stored %d recipes, want 3", len(items))
	}
}

func TestRun_BadConfiguration(t *testing.T) {
	setupSite(t)
	t.Setenv("MAX_CONCURRENCY", "0")
	stderr := &bytes.Buffer{}

	if code := run(context.Background(), []string{noEnvFile(t), "-argument", `{"name":"x"}`}, &bytes.Buffer{}, stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte("MAX_CONCURRENCY")) {
		t.Errorf("stderr should name the bad setting, got %q", stderr)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	if code := run(context.Background(), []string{"-nope"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 2 {
		t.Errorf("run() = %d, want 2", code)
	}
}
