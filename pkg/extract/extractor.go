// Package extract turns one rendered search result page into recipes.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for item extraction.
var (
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipe_items_total",
		Help: "Total search result items seen by outcome",
	}, []string{"outcome"})
)

// Item outcomes, used as the "outcome" label of recipe_items_total.
const (
	OutcomeKept           = "kept"
	OutcomeRatingRejected = "rating_rejected"
	OutcomeCountRejected  = "ratings_count_rejected"
	OutcomeFailed         = "extract_failed"
)

// Selectors locate the parts of a search result page.
type Selectors struct {
	List        string
	Card        string
	Title       string
	FullStar    string
	HalfStar    string
	RatingCount string
}

// DefaultSelectors returns the selectors of the allrecipes search page.
func DefaultSelectors() Selectors {
	return Selectors{
		List:        "#mntl-search-results__list_1-0",
		Card:        ".mntl-card-list-items",
		Title:       ".card__title-text",
		FullStar:    ".icon-star",
		HalfStar:    ".icon-star-half",
		RatingCount: ".mntl-recipe-card-meta__rating-count-number",
	}
}

// Extractor extracts filtered recipes from page content.
type Extractor struct {
	selectors Selectors
	logger    zerolog.Logger
}

// NewExtractor creates an extractor using the given selectors.
func NewExtractor(selectors Selectors) *Extractor {
	return &Extractor{
		selectors: selectors,
		logger:    log.With().Str("component", "extractor").Logger(),
	}
}

// Extract returns the recipes of page that satisfy filter.
//
// A page without a result list yields no recipes and no error. A card that
// cannot be read is logged and skipped; only a failure to enumerate the cards
// fails the whole page.
func (e *Extractor) Extract(ctx context.Context, page Node, filter domain.Filter) ([]domain.Recipe, error) {
	list, err := page.Query(ctx, e.selectors.List)
	if errors.Is(err, ErrElementNotFound) {
		e.logger.Warn().Str("query", filter.Name()).Msg("No results found, aborting")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query result list: %w", err)
	}

	cards, err := list.QueryAll(ctx, e.selectors.Card)
	if err != nil {
		return nil, fmt.Errorf("query result cards: %w", err)
	}

	var recipes []domain.Recipe
	for i, card := range cards {
		recipe, ok, err := e.extractCard(ctx, card, filter)
		if err != nil {
			itemsTotal.WithLabelValues(OutcomeFailed).Inc()
			e.logger.Warn().Err(err).Int("card", i).Msg("Could not extract recipe")
			continue
		}
		if !ok {
			continue
		}
		itemsTotal.WithLabelValues(OutcomeKept).Inc()
		recipes = append(recipes, recipe)
	}

	return recipes, nil
}

// extractCard returns ok=false when the card is filtered out.
func (e *Extractor) extractCard(ctx context.Context, card Node, filter domain.Filter) (domain.Recipe, bool, error) {
	rating, err := e.rating(ctx, card)
	if err != nil {
		return domain.Recipe{}, false, err
	}

	if !filter.AcceptsRating(rating) {
		itemsTotal.WithLabelValues(OutcomeRatingRejected).Inc()
		event := e.logger.Debug().Float64("rating", rating)
		if v, ok := filter.MinRating(); ok {
			event = event.Float64("min_rating", v)
		}
		if v, ok := filter.MaxRating(); ok {
			event = event.Float64("max_rating", v)
		}
		event.Msg("Recipe rating does not meet one of the filters")
		return domain.Recipe{}, false, nil
	}

	countNode, err := card.Query(ctx, e.selectors.RatingCount)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("query ratings count: %w", err)
	}
	countText, err := countNode.Text(ctx)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("read ratings count: %w", err)
	}
	ratingsCount, err := ParseRatingsCount(countText)
	if err != nil {
		return domain.Recipe{}, false, err
	}

	if !filter.AcceptsRatingsCount(ratingsCount) {
		itemsTotal.WithLabelValues(OutcomeCountRejected).Inc()
		event := e.logger.Debug().Float64("ratings_count", ratingsCount)
		if v, ok := filter.MinRatingsCount(); ok {
			event = event.Float64("min_ratings_count", v)
		}
		if v, ok := filter.MaxRatingsCount(); ok {
			event = event.Float64("max_ratings_count", v)
		}
		event.Msg("Recipe ratings count does not meet one of the filters")
		return domain.Recipe{}, false, nil
	}

	titleNode, err := card.Query(ctx, e.selectors.Title)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("query title: %w", err)
	}
	name, err := titleNode.Text(ctx)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("read title: %w", err)
	}
	url, err := card.Href(ctx)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("read link: %w", err)
	}

	recipe, err := domain.NewRecipe(domain.Fields{
		"name":         strings.TrimSpace(name),
		"rating":       rating,
		"ratingsCount": ratingsCount,
		"url":          url,
	})
	if err != nil {
		return domain.Recipe{}, false, err
	}
	return recipe, true, nil
}

// rating counts full stars and adds 0.5 for a half star.
func (e *Extractor) rating(ctx context.Context, card Node) (float64, error) {
	fullStars, err := card.QueryAll(ctx, e.selectors.FullStar)
	if err != nil {
		return 0, fmt.Errorf("query full stars: %w", err)
	}

	_, err = card.Query(ctx, e.selectors.HalfStar)
	switch {
	case err == nil:
		return ComputeRating(len(fullStars), true), nil
	case errors.Is(err, ErrElementNotFound):
		return ComputeRating(len(fullStars), false), nil
	default:
		return 0, fmt.Errorf("query half star: %w", err)
	}
}

// ComputeRating returns the star rating shown by fullStars full icons and an
// optional half icon.
func ComputeRating(fullStars int, halfStar bool) float64 {
	rating := float64(fullStars)
	if halfStar {
		rating += 0.5
	}
	return rating
}

// ParseRatingsCount converts text such as "1,636 Ratings" into 1636. The
// count must be written in plain decimal digits.
func ParseRatingsCount(text string) (float64, error) {
	tokens := strings.Fields(strings.ReplaceAll(text, ",", ""))
	if len(tokens) == 0 {
		return 0, fmt.Errorf("parse ratings count: empty text")
	}
	if !isDecimal(tokens[0]) {
		return 0, fmt.Errorf("parse ratings count %q: not a decimal number", text)
	}
	count, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse ratings count %q: %w", text, err)
	}
	return count, nil
}

// isDecimal reports whether s is digits with at most one decimal point.
func isDecimal(s string) bool {
	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}
