package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewRecipe_Valid(t *testing.T) {
	r, err := NewRecipe(Fields{
		"url":          "http://test.com",
		"name":         "test",
		"rating":       4.5,
		"ratingsCount": 525,
	})
	if err != nil {
		t.Fatalf("NewRecipe() error = %v", err)
	}

	if r.Name() != "test" || r.URL() != "http://test.com" || r.Rating() != 4.5 || r.RatingsCount() != 525 {
		t.Errorf("NewRecipe() = %+v, fields not copied", r)
	}
}

func TestNewRecipe_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      Fields
		contains []string
	}{
		{
			name: "no parameters",
			raw:  Fields{},
			contains: []string{
				"name should not be null or undefined",
				"rating should not be null or undefined",
				"ratingsCount should not be null or undefined",
				"url should not be null or undefined",
			},
		},
		{
			name:     "invalid name",
			raw:      Fields{"name": 1, "rating": 1, "ratingsCount": 1, "url": "u"},
			contains: []string{"name must be a string"},
		},
		{
			name:     "rating is a string",
			raw:      Fields{"name": "n", "rating": "1", "ratingsCount": 1, "url": "u"},
			contains: []string{"rating must be a number"},
		},
		{
			name:     "rating above 5",
			raw:      Fields{"name": "n", "rating": 5.5, "ratingsCount": 1, "url": "u"},
			contains: []string{"rating must not be greater than 5"},
		},
		{
			name:     "ratingsCount is a string",
			raw:      Fields{"name": "n", "rating": 1, "ratingsCount": "1", "url": "u"},
			contains: []string{"ratingsCount must be a number"},
		},
		{
			name:     "rating is NaN",
			raw:      Fields{"name": "n", "rating": math.NaN(), "ratingsCount": 1, "url": "u"},
			contains: []string{"rating must be a number conforming to the specified constraints"},
		},
		{
			name:     "ratingsCount is infinite",
			raw:      Fields{"name": "n", "rating": 1, "ratingsCount": math.Inf(1), "url": "u"},
			contains: []string{"ratingsCount must be a number conforming to the specified constraints"},
		},
		{
			name:     "ratingsCount has two decimals",
			raw:      Fields{"name": "n", "rating": 1, "ratingsCount": 1.56, "url": "u"},
			contains: []string{"ratingsCount must be a number conforming to the specified constraints"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecipe(tt.raw)
			var verr *DomainValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *DomainValidationError", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
				}
			}
			if len(verr.Violations) < len(tt.contains) {
				t.Errorf("got %d violations, want at least %d", len(verr.Violations), len(tt.contains))
			}
		})
	}
}

func TestRecipe_JSONShape(t *testing.T) {
	r, err := NewRecipe(Fields{"name": "Pasta", "rating": 4.5, "ratingsCount": 1636, "url": "https://example.com/r/1"})
	if err != nil {
		t.Fatalf("NewRecipe() error = %v", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"name":"Pasta","rating":4.5,"ratingsCount":1636,"url":"https://example.com/r/1"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRecipe_UnmarshalJSONValidates(t *testing.T) {
	var r Recipe
	if err := json.Unmarshal([]byte(`{"name":"Pasta","rating":4,"ratingsCount":12,"url":"u"}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Name() != "Pasta" || r.RatingsCount() != 12 {
		t.Errorf("Unmarshal() = %+v", r)
	}

	err := json.Unmarshal([]byte(`{"name":"Pasta","rating":9}`), &r)
	var verr *DomainValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Unmarshal() error = %v, want *DomainValidationError", err)
	}
}
