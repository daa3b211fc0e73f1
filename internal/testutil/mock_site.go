package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse overrides the response for one offset.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSite is a configurable fake recipe source serving /search pages.
type MockSite struct {
	server *httptest.Server

	mu        sync.RWMutex
	pages     map[int][]Card
	overrides map[int]MockResponse

	// Tracking
	requestCount    int
	offsetCounts    map[int]int
	queries         []string
	lastUserAgent   string
	maxInFlight     int
	currentInFlight int
}

// NewMockSite creates and starts a mock recipe source.
func NewMockSite() *MockSite {
	m := &MockSite{
		pages:        make(map[int][]Card),
		overrides:    make(map[int]MockResponse),
		offsetCounts: make(map[int]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the base URL of the mock site.
func (m *MockSite) URL() string {
	return m.server.URL
}

// Close shuts down the mock site.
func (m *MockSite) Close() {
	m.server.Close()
}

// SetPage serves cards at offset. Offsets without a page render a search
// page with no result list.
func (m *MockSite) SetPage(offset int, cards ...Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[offset] = cards
}

// SetResponse overrides the response for offset.
func (m *MockSite) SetResponse(offset int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[offset] = resp
}

// RequestCount returns the number of search requests served.
func (m *MockSite) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// OffsetCount returns the number of requests for offset.
func (m *MockSite) OffsetCount(offset int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offsetCounts[offset]
}

// Queries returns the q parameter of every request, in arrival order.
func (m *MockSite) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

// LastUserAgent returns the User-Agent of the latest request.
func (m *MockSite) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockSite) MaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

func (m *MockSite) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil {
		http.Error(w, "bad offset", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requestCount++
	m.offsetCounts[offset]++
	m.queries = append(m.queries, r.URL.Query().Get("q"))
	m.lastUserAgent = r.Header.Get("User-Agent")
	m.currentInFlight++
	if m.currentInFlight > m.maxInFlight {
		m.maxInFlight = m.currentInFlight
	}
	override, hasOverride := m.overrides[offset]
	cards, hasPage := m.pages[offset]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.currentInFlight--
		m.mu.Unlock()
	}()

	if hasOverride {
		if override.Delay > 0 {
			select {
			case <-time.After(override.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for k, v := range override.Headers {
			w.Header().Set(k, v)
		}
		status := override.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(override.Body))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if hasPage {
		w.Write([]byte(SearchPageHTML(cards...)))
		return
	}
	w.Write([]byte(NoResultsHTML()))
}

// SearchPageHTML renders cards in the markup of the search results page.
func SearchPageHTML(cards ...Card) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Search</title></head><body>`)
	b.WriteString(`<div id="mntl-search-results__list_1-0" class="comp mntl-search-results__list card-list">`)
	for _, c := range cards {
		b.WriteString(c.HTML())
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// NoResultsHTML renders a search page without a result list.
func NoResultsHTML() string {
	return `<!DOCTYPE html><html><head><title>Search</title></head><body><p class="search-results__no-results">No results</p></body></html>`
}

// HTML renders the card as an anchor element.
func (c Card) HTML() string {
	var b strings.Builder
	if c.URL != "" {
		fmt.Fprintf(&b, `<a class="comp mntl-card-list-items card" href="%s">`, html.EscapeString(c.URL))
	} else {
		b.WriteString(`<a class="comp mntl-card-list-items card">`)
	}
	b.WriteString(`<div class="card__content">`)
	fmt.Fprintf(&b, `<span class="card__title"><span class="card__title-text">%s</span></span>`, html.EscapeString(c.Title))
	b.WriteString(`<div class="mntl-recipe-star-rating">`)
	for i := 0; i < c.FullStars; i++ {
		b.WriteString(`<svg class="icon icon-star"></svg>`)
	}
	if c.HalfStar {
		b.WriteString(`<svg class="icon icon-star-half"></svg>`)
	}
	b.WriteString(`</div>`)
	if c.RatingsCount != "" {
		fmt.Fprintf(&b, `<div class="mntl-recipe-card-meta__rating-count-number">%s</div>`, html.EscapeString(c.RatingsCount))
	}
	b.WriteString(`</div></a>`)
	return b.String()
}
