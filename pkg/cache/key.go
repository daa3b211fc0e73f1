package cache

import (
	"fmt"
	"strings"
)

// PageKey identifies one search page of one source.
type PageKey struct {
	// Source is the host of the recipe source (e.g. "www.allrecipes.com").
	Source string

	Query  string
	Offset int
}

// String generates a deterministic Redis key.
// Format: recipes:page:source:offset=N:q=query
//
// Example:
//
//	recipes:page:www.allrecipes.com:offset=24:q=pasta
func (k PageKey) String() string {
	parts := []string{"recipes", "page"}

	if source := strings.ToLower(strings.TrimSpace(k.Source)); source != "" {
		parts = append(parts, source)
	}

	parts = append(parts,
		fmt.Sprintf("offset=%d", k.Offset),
		fmt.Sprintf("q=%s", normalizeQuery(k.Query)),
	)

	return strings.Join(parts, ":")
}

// normalizeQuery lowercases the query and collapses whitespace so that
// "Pasta  Bake" and "pasta bake" share an entry.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
