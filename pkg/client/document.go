package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/recipe-scraper/pkg/extract"
)

// document is an extract.Node over a parsed HTML selection.
type document struct {
	sel  *goquery.Selection
	base *url.URL
}

func newDocument(doc *goquery.Document, base *url.URL) *document {
	return &document{sel: doc.Selection, base: base}
}

// Query implements extract.Node.
func (d *document) Query(ctx context.Context, selector string) (extract.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := d.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", extract.ErrElementNotFound, selector)
	}
	return &document{sel: found, base: d.base}, nil
}

// QueryAll implements extract.Node.
func (d *document) QueryAll(ctx context.Context, selector string) ([]extract.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := d.sel.Find(selector)
	nodes := make([]extract.Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &document{sel: s, base: d.base})
	})
	return nodes, nil
}

// Text implements extract.Node.
func (d *document) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.sel.Text(), nil
}

// Href implements extract.Node. The link is taken from the element itself or
// its first descendant anchor, resolved against the page URL.
func (d *document) Href(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	href, ok := d.sel.Attr("href")
	if !ok {
		href, ok = d.sel.Find("a[href]").First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", extract.ErrAttributeNotFound
	}

	if d.base == nil {
		return href, nil
	}
	resolved, err := d.base.Parse(href)
	if err != nil {
		return "", fmt.Errorf("resolve link %q: %w", href, err)
	}
	return resolved.String(), nil
}
