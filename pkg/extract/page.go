package extract

import (
	"context"
	"errors"
)

var (
	// ErrElementNotFound is returned by Node.Query when nothing matches the selector.
	ErrElementNotFound = errors.New("element not found")

	// ErrAttributeNotFound is returned by Node.Href when the element has no link target.
	ErrAttributeNotFound = errors.New("attribute not found")
)

// Node is the capability surface of rendered page content: a document root
// or one element inside it. Implementations may block (a browser round-trip),
// hence the context on every call.
type Node interface {
	// Query returns the first descendant matching selector.
	Query(ctx context.Context, selector string) (Node, error)

	// QueryAll returns every descendant matching selector, possibly none.
	QueryAll(ctx context.Context, selector string) ([]Node, error)

	// Text returns the text content of the node.
	Text(ctx context.Context) (string, error)

	// Href returns the link target of the node.
	Href(ctx context.Context) (string, error)
}
