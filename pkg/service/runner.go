package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/logging"
	"github.com/rs/zerolog"
)

// ArgumentSource supplies the raw search arguments of a run.
type ArgumentSource interface {
	ReadArguments(ctx context.Context) (domain.Fields, error)
}

// ResultSink receives the recipes of a run.
type ResultSink interface {
	WriteResult(ctx context.Context, recipes []domain.Recipe) error
}

// Executor runs a search from raw arguments. *FetchService satisfies it.
type Executor interface {
	Execute(ctx context.Context, raw domain.Fields) ([]domain.Recipe, error)
}

// Runner performs one scripted run: read arguments, search, hand off the result.
type Runner struct {
	executor Executor
	args     ArgumentSource
	sink     ResultSink
	logger   zerolog.Logger
}

// NewRunner creates a runner.
func NewRunner(executor Executor, args ArgumentSource, sink ResultSink) *Runner {
	return &Runner{
		executor: executor,
		args:     args,
		sink:     sink,
		logger:   logging.NewLogger(logging.ComponentRunner),
	}
}

// Run executes the run. Reading the arguments, validating them and searching
// are fatal and returned; a failed result hand-off is only logged.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Msg("Script has been launched")

	raw, err := r.args.ReadArguments(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Could not read the script arguments")
		return fmt.Errorf("read arguments: %w", err)
	}

	recipes, err := r.executor.Execute(ctx, raw)
	if err != nil {
		var validationErr *domain.DomainValidationError
		if errors.As(err, &validationErr) {
			r.logger.Error().Err(err).Msg("One of the arguments passed is wrong")
		} else {
			r.logger.Error().Err(err).Msg("Something went wrong while trying to build the filters")
		}
		return err
	}

	if err := r.sink.WriteResult(ctx, recipes); err != nil {
		r.logger.Error().Err(err).Msg("Could not upload the result")
	}

	r.logger.Info().Int("numberOfRecipesFound", len(recipes)).Msg("Script done")
	return nil
}
