package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/logging"
)

type staticArgs struct {
	fields domain.Fields
	err    error
}

func (a staticArgs) ReadArguments(ctx context.Context) (domain.Fields, error) {
	return a.fields, a.err
}

type recordingSink struct {
	written [][]domain.Recipe
	err     error
}

func (s *recordingSink) WriteResult(ctx context.Context, recipes []domain.Recipe) error {
	s.written = append(s.written, recipes)
	return s.err
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logging.Setup(logging.Config{Level: logging.LevelInfo, Output: buf})
	t.Cleanup(func() { logging.Setup(logging.DefaultConfig()) })
	return buf
}

func TestRun_Success(t *testing.T) {
	logs := captureLogs(t)
	searcher := &fakeSearcher{recipes: []domain.Recipe{
		mustRecipe(t, "a", 5, 80),
		mustRecipe(t, "b", 4.5, 60),
	}}
	sink := &recordingSink{}

	runner := NewRunner(NewFetchService(searcher), staticArgs{fields: domain.Fields{"name": "pasta"}}, sink)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.written) != 1 || len(sink.written[0]) != 2 {
		t.Fatalf("sink received %v, want one result of 2 recipes", sink.written)
	}

	out := logs.String()
	for _, msg := range []string{"Script has been launched", "Script done", `"numberOfRecipesFound":2`} {
		if !strings.Contains(out, msg) {
			t.Errorf("logs should contain %q, got %q", msg, out)
		}
	}
}

func TestRun_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		args       staticArgs
		searchErr  error
		wantLog    string
		wantSearch int
	}{
		{
			name:    "argument source fails",
			args:    staticArgs{err: boom},
			wantLog: "Could not read the script arguments",
		},
		{
			name:    "invalid arguments",
			args:    staticArgs{fields: domain.Fields{"page": 0}},
			wantLog: "One of the arguments passed is wrong",
		},
		{
			name:       "search fails",
			args:       staticArgs{fields: domain.Fields{"name": "x"}},
			searchErr:  boom,
			wantLog:    "Something went wrong while trying to build the filters",
			wantSearch: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			searcher := &fakeSearcher{err: tt.searchErr}
			sink := &recordingSink{}

			err := NewRunner(NewFetchService(searcher), tt.args, sink).Run(context.Background())
			if err == nil {
				t.Fatal("Run() error = nil, want failure")
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("logs should contain %q, got %q", tt.wantLog, logs.String())
			}
			if searcher.calls != tt.wantSearch {
				t.Errorf("searcher called %d times, want %d", searcher.calls, tt.wantSearch)
			}
			if len(sink.written) != 0 {
				t.Error("sink should not receive a result")
			}
			if strings.Contains(logs.String(), "Script done") {
				t.Error("failed run should not log completion")
			}
		})
	}
}

func TestRun_InvalidArgumentsReturnValidationError(t *testing.T) {
	captureLogs(t)

	err := NewRunner(NewFetchService(&fakeSearcher{}), staticArgs{fields: domain.Fields{}}, &recordingSink{}).Run(context.Background())

	var ve *domain.DomainValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Run() error = %v, want *DomainValidationError", err)
	}
	if !strings.HasPrefix(err.Error(), "Validation error: ") {
		t.Errorf("Error() = %q, want validation prefix", err.Error())
	}
}

func TestRun_SinkFailureIsNotFatal(t *testing.T) {
	logs := captureLogs(t)
	sink := &recordingSink{err: errors.New("container unreachable")}

	runner := NewRunner(NewFetchService(&fakeSearcher{}), staticArgs{fields: domain.Fields{"name": "x"}}, sink)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil when only the hand-off fails", err)
	}

	out := logs.String()
	if !strings.Contains(out, "Could not upload the result") {
		t.Errorf("logs should report the hand-off failure, got %q", out)
	}
	if !strings.Contains(out, "Script done") {
		t.Errorf("run should still complete, got %q", out)
	}
}
