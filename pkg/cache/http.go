package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTTL is used when ResponseToEntry is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

// ResponseToEntry converts an HTTP response to an Entry living at most ttl.
// The response body is read and restored for the caller.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Body:       body,
		StatusCode: resp.StatusCode,
		FetchedAt:  now,
		Expires:    parseExpires(resp.Header, now, ttl),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		entry.URL = resp.Request.URL.String()
	}

	return entry, nil
}

// parseExpires returns now+ttl, or the Expires header when it is earlier.
func parseExpires(headers http.Header, now time.Time, ttl time.Duration) time.Time {
	expires := now.Add(ttl)

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return expires
	}

	parsed, err := http.ParseTime(expiresStr)
	if err != nil {
		return expires
	}
	if parsed.Before(now) {
		return now
	}
	if parsed.Before(expires) {
		return parsed
	}
	return expires
}
