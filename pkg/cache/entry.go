package cache

import (
	"time"
)

// Entry is a cached search page.
type Entry struct {
	// Body is the raw HTML of the page.
	Body []byte `json:"body"`

	// URL is the address the page was fetched from, used to resolve relative links.
	URL string `json:"url"`

	StatusCode int `json:"status_code"`

	// FetchedAt is when the page was retrieved from the source.
	FetchedAt time.Time `json:"fetched_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
