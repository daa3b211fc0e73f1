// Package service is the entry point of a recipe search: it turns raw
// arguments into a validated filter and hands it to the pagination layer.
package service

import (
	"context"
	"fmt"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/Sternrassler/recipe-scraper/pkg/logging"
	"github.com/rs/zerolog"
)

// Searcher runs a validated search. *pagination.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, filter domain.Filter) ([]domain.Recipe, error)
}

// FetchService validates search arguments and runs the search.
type FetchService struct {
	searcher Searcher
	logger   zerolog.Logger
}

// NewFetchService creates a fetch service on top of searcher.
func NewFetchService(searcher Searcher) *FetchService {
	return &FetchService{
		searcher: searcher,
		logger:   logging.NewLogger(logging.ComponentFetchService),
	}
}

// Execute builds a filter from raw and searches with it.
//
// A *domain.DomainValidationError is returned unchanged and nothing is
// fetched. Recipes come back in no particular order.
func (s *FetchService) Execute(ctx context.Context, raw domain.Fields) ([]domain.Recipe, error) {
	filter, err := domain.NewFilter(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Object("filter", filter).Msg("Filters built")

	recipes, err := s.searcher.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}
	return recipes, nil
}
