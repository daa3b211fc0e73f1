// Package testutil provides testing utilities for the recipe scraper.
package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/recipe-scraper/pkg/extract"
)

// FakeNode is an in-memory extract.Node. Children are looked up by exact
// selector string, which is enough to mimic the search page markup.
type FakeNode struct {
	Content  string
	Link     string
	Children map[string][]*FakeNode

	// Err, when set, is returned by every call on this node.
	Err error
}

// Query implements extract.Node.
func (n *FakeNode) Query(ctx context.Context, selector string) (extract.Node, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	children := n.Children[selector]
	if len(children) == 0 {
		return nil, extract.ErrElementNotFound
	}
	return children[0], nil
}

// QueryAll implements extract.Node.
func (n *FakeNode) QueryAll(ctx context.Context, selector string) ([]extract.Node, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	nodes := make([]extract.Node, 0, len(n.Children[selector]))
	for _, c := range n.Children[selector] {
		nodes = append(nodes, c)
	}
	return nodes, nil
}

// Text implements extract.Node.
func (n *FakeNode) Text(ctx context.Context) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	return n.Content, nil
}

// Href implements extract.Node.
func (n *FakeNode) Href(ctx context.Context) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	if n.Link == "" {
		return "", extract.ErrAttributeNotFound
	}
	return n.Link, nil
}

// Card describes one search result card.
type Card struct {
	Title        string
	FullStars    int
	HalfStar     bool
	RatingsCount string
	URL          string
}

// NewCard builds a card for a rating such as 4.5 and a ratings count.
// Title and URL are derived from both values so cards are distinguishable.
func NewCard(rating float64, ratingsCount int) Card {
	full := int(rating)
	return Card{
		Title:        fmt.Sprintf("Recipe %.1f/%d", rating, ratingsCount),
		FullStars:    full,
		HalfStar:     rating-float64(full) >= 0.5,
		RatingsCount: fmt.Sprintf("%s Ratings", groupThousands(ratingsCount)),
		URL:          fmt.Sprintf("https://www.allrecipes.com/recipe/%d/%s/", ratingsCount, strings.ReplaceAll(fmt.Sprintf("%.1f", rating), ".", "-")),
	}
}

// Node renders the card as a fake element using the default selectors.
func (c Card) Node() *FakeNode {
	sel := extract.DefaultSelectors()
	children := map[string][]*FakeNode{
		sel.Title: {{Content: c.Title}},
	}
	for i := 0; i < c.FullStars; i++ {
		children[sel.FullStar] = append(children[sel.FullStar], &FakeNode{})
	}
	if c.HalfStar {
		children[sel.HalfStar] = []*FakeNode{{}}
	}
	if c.RatingsCount != "" {
		children[sel.RatingCount] = []*FakeNode{{Content: c.RatingsCount}}
	}
	return &FakeNode{Link: c.URL, Children: children}
}

// ResultsPage builds a fake search page holding cards.
func ResultsPage(cards ...Card) *FakeNode {
	sel := extract.DefaultSelectors()
	list := &FakeNode{Children: map[string][]*FakeNode{}}
	for _, c := range cards {
		list.Children[sel.Card] = append(list.Children[sel.Card], c.Node())
	}
	return &FakeNode{Children: map[string][]*FakeNode{sel.List: {list}}}
}

// EmptyPage builds a fake page without a result list.
func EmptyPage() *FakeNode {
	return &FakeNode{}
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
