// Package domain holds the validated value objects of the recipe scraper.
//
// Entities are built through constructors that run the rule table of
// pkg/validation; an invalid Filter or Recipe can never be observed.
package domain

import (
	"encoding/json"

	"github.com/Sternrassler/recipe-scraper/pkg/validation"
	"github.com/rs/zerolog"
)

// Fields is the raw, untyped input an entity is built from.
type Fields map[string]any

// Field names accepted by NewFilter.
const (
	FieldName            = "name"
	FieldPage            = "page"
	FieldMinRating       = "minRating"
	FieldMaxRating       = "maxRating"
	FieldMinRatingsCount = "minRatingsCount"
	FieldMaxRatingsCount = "maxRatingsCount"
)

// DefaultPage is used when no page count is supplied.
const DefaultPage = 1

// MaxPage is the largest page count a single search may scrape.
const MaxPage = 1000

var filterSchema = validation.Schema{
	{Name: FieldName, Rule: validation.Rule{Required: true, Kind: validation.String}},
	{Name: FieldPage, Rule: validation.Rule{Kind: validation.Integer, Min: validation.Float(1), Max: validation.Float(MaxPage)}},
	{Name: FieldMinRating, Rule: ratingBoundRule},
	{Name: FieldMaxRating, Rule: ratingBoundRule},
	{Name: FieldMinRatingsCount, Rule: validation.Rule{Kind: validation.Number, Min: validation.Float(0)}},
	{Name: FieldMaxRatingsCount, Rule: validation.Rule{Kind: validation.Number, Min: validation.Float(0)}},
}

var ratingBoundRule = validation.Rule{
	Kind:             validation.Number,
	Min:              validation.Float(0),
	Max:              validation.Float(5),
	MaxDecimalPlaces: validation.Int(1),
}

// Filter is the set of search criteria applied while scraping.
type Filter struct {
	name            string
	page            int
	minRating       *float64
	maxRating       *float64
	minRatingsCount *float64
	maxRatingsCount *float64
}

// NewFilter validates raw and builds a Filter. The page count defaults to 1.
func NewFilter(raw Fields) (Filter, error) {
	fields := make(Fields, len(raw)+1)
	for k, v := range raw {
		fields[k] = v
	}
	if fields[FieldPage] == nil {
		fields[FieldPage] = DefaultPage
	}

	if violations := filterSchema.Validate(fields); len(violations) > 0 {
		return Filter{}, newValidationError(violations)
	}

	page, _ := validation.ToFloat(fields[FieldPage])
	f := Filter{
		name:            fields[FieldName].(string),
		page:            int(page),
		minRating:       optionalFloat(fields[FieldMinRating]),
		maxRating:       optionalFloat(fields[FieldMaxRating]),
		minRatingsCount: optionalFloat(fields[FieldMinRatingsCount]),
		maxRatingsCount: optionalFloat(fields[FieldMaxRatingsCount]),
	}

	if f.minRatingsCount != nil && f.maxRatingsCount != nil && *f.maxRatingsCount < *f.minRatingsCount {
		return Filter{}, newInvariantError("The maxRatingsCount cannot be lower than minRatingsCount")
	}
	if f.minRating != nil && f.maxRating != nil && *f.maxRating < *f.minRating {
		return Filter{}, newInvariantError("The maxRating cannot be lower than minRating")
	}

	return f, nil
}

func optionalFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	f, ok := validation.ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Name is the recipe or ingredient searched for.
func (f Filter) Name() string { return f.name }

// Page is the number of result pages to scrape.
func (f Filter) Page() int { return f.page }

// MinRating returns the lower rating bound and whether it is set.
func (f Filter) MinRating() (float64, bool) { return deref(f.minRating) }

// MaxRating returns the upper rating bound and whether it is set.
func (f Filter) MaxRating() (float64, bool) { return deref(f.maxRating) }

// MinRatingsCount returns the lower ratings count bound and whether it is set.
func (f Filter) MinRatingsCount() (float64, bool) { return deref(f.minRatingsCount) }

// MaxRatingsCount returns the upper ratings count bound and whether it is set.
func (f Filter) MaxRatingsCount() (float64, bool) { return deref(f.maxRatingsCount) }

// AcceptsRating reports whether rating lies within the rating bounds.
func (f Filter) AcceptsRating(rating float64) bool {
	if f.minRating != nil && rating < *f.minRating {
		return false
	}
	if f.maxRating != nil && rating > *f.maxRating {
		return false
	}
	return true
}

// AcceptsRatingsCount reports whether count lies within the ratings count bounds.
func (f Filter) AcceptsRatingsCount(count float64) bool {
	if f.minRatingsCount != nil && count < *f.minRatingsCount {
		return false
	}
	if f.maxRatingsCount != nil && count > *f.maxRatingsCount {
		return false
	}
	return true
}

type filterJSON struct {
	Name            string   `json:"name"`
	Page            int      `json:"page"`
	MinRating       *float64 `json:"minRating,omitempty"`
	MaxRating       *float64 `json:"maxRating,omitempty"`
	MinRatingsCount *float64 `json:"minRatingsCount,omitempty"`
	MaxRatingsCount *float64 `json:"maxRatingsCount,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterJSON{
		Name:            f.name,
		Page:            f.page,
		MinRating:       f.minRating,
		MaxRating:       f.maxRating,
		MinRatingsCount: f.minRatingsCount,
		MaxRatingsCount: f.maxRatingsCount,
	})
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (f Filter) MarshalZerologObject(e *zerolog.Event) {
	e.Str(FieldName, f.name).Int(FieldPage, f.page)
	if f.minRating != nil {
		e.Float64(FieldMinRating, *f.minRating)
	}
	if f.maxRating != nil {
		e.Float64(FieldMaxRating, *f.maxRating)
	}
	if f.minRatingsCount != nil {
		e.Float64(FieldMinRatingsCount, *f.minRatingsCount)
	}
	if f.maxRatingsCount != nil {
		e.Float64(FieldMaxRatingsCount, *f.maxRatingsCount)
	}
}
