package discovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/fetch"
)

// minValidResults is the threshold below which a search is retried with a
// broadened query.
const minValidResults = 3

// URLProvider returns candidate URLs for a search query.
type URLProvider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// SearchResult is one verified, annotated URL.
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Searcher backs the draft generator's search tool: it resolves a query to
// reachable URLs annotated with page title and meta description.
type Searcher struct {
	provider URLProvider
	fetcher  *fetch.Client
	logger   *zap.Logger
}

// NewSearcher builds a searcher over the given URL provider.
func NewSearcher(provider URLProvider, fetcher *fetch.Client, logger *zap.Logger) *Searcher {
	if fetcher == nil {
		fetcher = fetch.NewClient(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{provider: provider, fetcher: fetcher, logger: logger}
}

// Search returns up to limit verified results. When fewer than three URLs
// survive reachability checks, the query is broadened once (first two
// words plus "guide") and the results merged.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = minValidResults
	}

	results, err := s.searchOnce(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if len(results) < minValidResults {
		broadened := BroadenQuery(query)
		if broadened != query {
			s.logger.Debug("broadening search", zap.String("query", query), zap.String("broadened", broadened))
			more, err := s.searchOnce(ctx, broadened, limit)
			if err == nil {
				results = mergeResults(results, more, limit)
			}
		}
	}
	return results, nil
}

func (s *Searcher) searchOnce(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	urls, err := s.provider.Search(ctx, query, limit)
	if err != nil {
		return nil, &Error{Message: "url lookup failed", Cause: err}
	}

	var results []SearchResult
	for _, u := range urls {
		if len(results) >= limit {
			break
		}
		if !s.fetcher.CheckReachable(ctx, u) {
			s.logger.Debug("url unreachable", zap.String("url", u))
			continue
		}
		meta := s.fetcher.Meta(ctx, u)
		results = append(results, SearchResult{URL: u, Title: meta.Title, Description: meta.Description})
	}
	return results, nil
}

// CheckReachable reports whether a URL answers with a non-error status.
func (s *Searcher) CheckReachable(ctx context.Context, url string) bool {
	return s.fetcher.CheckReachable(ctx, url)
}

// BroadenQuery reduces a query to its first two words plus "guide".
func BroadenQuery(query string) string {
	words := strings.Fields(query)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(append(words, "guide"), " ")
}

func mergeResults(a, b []SearchResult, limit int) []SearchResult {
	seen := make(map[string]bool, len(a))
	for _, r := range a {
		seen[r.URL] = true
	}
	for _, r := range b {
		if len(a) >= limit {
			break
		}
		if !seen[r.URL] {
			seen[r.URL] = true
			a = append(a, r)
		}
	}
	return a
}
