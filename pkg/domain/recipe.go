package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/recipe-scraper/pkg/validation"
)

var recipeSchema = validation.Schema{
	{Name: "name", Rule: validation.Rule{Required: true, Kind: validation.String}},
	{Name: "rating", Rule: validation.Rule{
		Required:         true,
		Kind:             validation.Number,
		Min:              validation.Float(0),
		Max:              validation.Float(5),
		MaxDecimalPlaces: validation.Int(1),
	}},
	{Name: "ratingsCount", Rule: validation.Rule{Required: true, Kind: validation.Number, MaxDecimalPlaces: validation.Int(1)}},
	{Name: "url", Rule: validation.Rule{Required: true, Kind: validation.String}},
}

// Recipe is a single scraped search result.
type Recipe struct {
	name         string
	rating       float64
	ratingsCount float64
	url          string
}

// NewRecipe validates raw and builds a Recipe.
func NewRecipe(raw Fields) (Recipe, error) {
	if violations := recipeSchema.Validate(raw); len(violations) > 0 {
		return Recipe{}, newValidationError(violations)
	}

	rating, _ := validation.ToFloat(raw["rating"])
	count, _ := validation.ToFloat(raw["ratingsCount"])
	return Recipe{
		name:         raw["name"].(string),
		rating:       rating,
		ratingsCount: count,
		url:          raw["url"].(string),
	}, nil
}

// Name is the recipe title.
func (r Recipe) Name() string { return r.name }

// Rating is the star rating, 0 to 5 in half steps.
func (r Recipe) Rating() float64 { return r.rating }

// RatingsCount is the number of ratings behind Rating.
func (r Recipe) RatingsCount() float64 { return r.ratingsCount }

// URL links to the recipe page.
func (r Recipe) URL() string { return r.url }

type recipeJSON struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	RatingsCount float64 `json:"ratingsCount"`
	URL          string  `json:"url"`
}

// MarshalJSON implements json.Marshaler.
func (r Recipe) MarshalJSON() ([]byte, error) {
	return json.Marshal(recipeJSON{
		Name:         r.name,
		Rating:       r.rating,
		RatingsCount: r.ratingsCount,
		URL:          r.url,
	})
}

// UnmarshalJSON decodes and re-validates a recipe.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw Fields
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode recipe: %w", err)
	}

	recipe, err := NewRecipe(raw)
	if err != nil {
		return err
	}
	*r = recipe
	return nil
}
