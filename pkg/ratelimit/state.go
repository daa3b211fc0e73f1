// Package ratelimit paces requests to the recipe source. A token bucket
// bounds the steady request rate, and a cool-down window opened by 429 or
// 503 responses holds every request until the source is willing to serve
// again.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RedisKeyBlockedUntil holds the end of the current cool-down as Unix
// milliseconds when the state is shared through Redis.
const RedisKeyBlockedUntil = "recipes:rate_limit:blocked_until"

// DefaultCoolDown is used when a throttling response carries no usable
// Retry-After header.
const DefaultCoolDown = 30 * time.Second

// MaxCoolDown caps a Retry-After value.
const MaxCoolDown = 10 * time.Minute

// State is the current pacing state.
type State struct {
	// BlockedUntil is the end of the cool-down window. Zero when none was set.
	BlockedUntil time.Time `json:"blocked_until"`

	// RequestsPerSecond and Burst describe the token bucket.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// IsBlocked returns true while the cool-down window is open.
func (s *State) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// TimeUntilUnblocked returns the remaining cool-down, or 0 if none.
func (s *State) TimeUntilUnblocked() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsThrottling reports whether a status code opens a cool-down window.
func IsThrottling(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}

// ParseRetryAfter parses a Retry-After value given either as delay seconds
// or as an HTTP date. The result is capped at MaxCoolDown.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}

	if d > MaxCoolDown {
		d = MaxCoolDown
	}
	return d, true
}
