package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestState_IsBlocked(t *testing.T) {
	tests := []struct {
		name         string
		blockedUntil time.Time
		want         bool
	}{
		{"never blocked", time.Time{}, false},
		{"window open", time.Now().Add(time.Minute), true},
		{"window passed", time.Now().Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{BlockedUntil: tt.blockedUntil}
			if got := s.IsBlocked(); got != tt.want {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_TimeUntilUnblocked(t *testing.T) {
	s := &State{BlockedUntil: time.Now().Add(-time.Minute)}
	if d := s.TimeUntilUnblocked(); d != 0 {
		t.Errorf("TimeUntilUnblocked() = %v, want 0", d)
	}

	s = &State{BlockedUntil: time.Now().Add(time.Minute)}
	if d := s.TimeUntilUnblocked(); d <= 0 || d > time.Minute {
		t.Errorf("TimeUntilUnblocked() = %v, want (0, 1m]", d)
	}
}

func TestIsThrottling(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		if got := IsThrottling(tt.status); got != tt.want {
			t.Errorf("IsThrottling(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"empty", "", 0, false},
		{"seconds", "120", 2 * time.Minute, true},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, false},
		{"http date", now.Add(45 * time.Second).UTC().Format(http.TimeFormat), 45 * time.Second, true},
		{"past date", now.Add(-time.Hour).UTC().Format(http.TimeFormat), 0, true},
		{"capped", "86400", MaxCoolDown, true},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
