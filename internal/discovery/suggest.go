package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const suggestTimeout = 10 * time.Second

// GoogleSuggester fetches autocomplete suggestions from the public Google
// suggest endpoint.
type GoogleSuggester struct {
	http *http.Client
	// Endpoint overrides the suggest URL; tests point it at a fixture
	// server.
	Endpoint string
}

// NewGoogleSuggester builds a suggester with the default endpoint.
func NewGoogleSuggester() *GoogleSuggester {
	return &GoogleSuggester{
		http:     &http.Client{Timeout: suggestTimeout},
		Endpoint: "https://suggestqueries.google.com/complete/search",
	}
}

// Suggest returns autocomplete completions for a query. The endpoint
// answers with a two-element JSON array: the query, then the suggestions.
func (g *GoogleSuggester) Suggest(ctx context.Context, query string) ([]string, error) {
	u := fmt.Sprintf("%s?client=firefox&q=%s", g.Endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Message: "failed to create suggest request", Cause: err}
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, &Error{Message: "suggest request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("suggest endpoint returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "failed to read suggest response", Cause: err}
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Message: "unexpected suggest response shape", Cause: err}
	}
	if len(payload) < 2 {
		return nil, nil
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, &Error{Message: "unexpected suggestions shape", Cause: err}
	}
	return suggestions, nil
}

// DuckDuckGoProvider resolves search queries to result URLs by scraping the
// DuckDuckGo HTML endpoint.
type DuckDuckGoProvider struct {
	http *http.Client
	// Endpoint overrides the search URL for tests.
	Endpoint string
}

// NewDuckDuckGoProvider builds a URL provider with the default endpoint.
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		http:     &http.Client{Timeout: suggestTimeout},
		Endpoint: "https://html.duckduckgo.com/html/",
	}
}

// Search returns up to limit result URLs for a query.
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	u := fmt.Sprintf("%s?q=%s", d.Endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Message: "failed to create search request", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BeastBlogger/1.0)")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, &Error{Message: "search request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("search endpoint returned status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{Message: "failed to parse search results", Cause: err}
	}

	var urls []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveResultURL(href); resolved != "" {
			urls = append(urls, resolved)
		}
		return limit <= 0 || len(urls) < limit
	})
	return urls, nil
}

// resolveResultURL unwraps DuckDuckGo's redirect links (/l/?uddg=...)
// down to the target URL.
func resolveResultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		href = target
		u, err = url.Parse(href)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if !strings.Contains(u.Host, ".") {
		return ""
	}
	return href
}
