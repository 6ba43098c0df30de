// Package discovery harvests keyword candidates from storefront pages and
// autocomplete suggestions, and scores them for search intent.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jblacklock/beast-blogger/internal/fetch"
	"github.com/jblacklock/beast-blogger/internal/keywords"
)

// pagePaths are the storefront paths sampled per site.
var pagePaths = []string{"", "about", "about-us", "products", "shop"}

// defaultModifiers are the autocomplete expansion templates. %s is the
// seed phrase.
var defaultModifiers = []string{
	"how to use %s",
	"benefits of %s",
	"%s vs",
	"%s reviews",
	"best %s",
	"%s alternatives",
}

// topPhraseLimit caps the seed phrases carried into suggestion expansion.
const topPhraseLimit = 20

// pageFetchParallelism bounds concurrent page fetches across sites.
const pageFetchParallelism = 4

// DefaultSuggestDelay spaces out autocomplete requests.
const DefaultSuggestDelay = 200 * time.Millisecond

// PageFetcher retrieves raw HTML for a URL.
type PageFetcher interface {
	URL(ctx context.Context, url string) (*fetch.Result, error)
}

// SuggestionProvider returns autocomplete suggestions for a seed query.
type SuggestionProvider interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Candidate is a scored keyword suggestion.
type Candidate struct {
	Text   string
	Score  int
	Intent keywords.Intent
}

// Record converts a candidate into a keyword record sourced from discovery.
func (c Candidate) Record() keywords.Record {
	return keywords.Record{
		Query:  c.Text,
		Tab:    "discovery",
		Intent: c.Intent,
	}
}

// Options configures the discovery engine.
type Options struct {
	// Markers filter extracted phrases to ones containing at least one
	// marker term. Empty means keep everything.
	Markers []string
	// Modifiers override the expansion templates; %s is the seed phrase.
	Modifiers []string
	// Delay between suggestion requests.
	Delay time.Duration
}

// Engine discovers keyword candidates for a storefront.
type Engine struct {
	fetcher   PageFetcher
	suggester SuggestionProvider
	markers   []string
	modifiers []string
	delay     time.Duration
	logger    *zap.Logger
}

// NewEngine builds a discovery engine.
func NewEngine(fetcher PageFetcher, suggester SuggestionProvider, opts *Options, logger *zap.Logger) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	modifiers := opts.Modifiers
	if len(modifiers) == 0 {
		modifiers = defaultModifiers
	}
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultSuggestDelay
	}
	return &Engine{
		fetcher:   fetcher,
		suggester: suggester,
		markers:   lowerAll(opts.Markers),
		modifiers: modifiers,
		delay:     delay,
		logger:    logger,
	}
}

// Discover harvests, expands, and scores keyword candidates for the target
// site and its competitors. Individual page or suggestion failures are
// logged and skipped; the run aborts only on context cancellation.
func (e *Engine) Discover(ctx context.Context, siteURL string, competitorURLs []string) ([]Candidate, error) {
	sites := append([]string{siteURL}, competitorURLs...)

	var mu sync.Mutex
	freq := make(map[string]int)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(pageFetchParallelism)
	for _, site := range sites {
		for _, path := range pagePaths {
			pageURL := joinURL(site, path)
			group.Go(func() error {
				result, err := e.fetcher.URL(groupCtx, pageURL)
				if err != nil {
					e.logger.Debug("page skipped", zap.String("url", pageURL), zap.Error(err))
					return nil
				}
				blocks, err := fetch.ExtractWeightedText(result.HTML)
				if err != nil {
					e.logger.Debug("page unparseable", zap.String("url", pageURL), zap.Error(err))
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				for _, block := range blocks {
					for _, phrase := range ngrams(block.Text, 2, 4) {
						freq[phrase] += block.Weight
					}
				}
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeds := e.topPhrases(freq)
	e.logger.Info("seed phrases extracted", zap.Int("count", len(seeds)))

	suggestions := e.expand(ctx, seeds)

	candidates := scoreSuggestions(suggestions)
	e.logger.Info("candidates scored", zap.Int("count", len(candidates)))
	return candidates, nil
}

// topPhrases filters by marker terms and ranks by weighted frequency, then
// phrase length, keeping the top seeds.
func (e *Engine) topPhrases(freq map[string]int) []string {
	type scored struct {
		phrase string
		count  int
		words  int
	}
	var ranked []scored
	for phrase, count := range freq {
		if !e.matchesMarker(phrase) {
			continue
		}
		ranked = append(ranked, scored{phrase: phrase, count: count, words: len(strings.Fields(phrase))})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		if ranked[i].words != ranked[j].words {
			return ranked[i].words > ranked[j].words
		}
		return ranked[i].phrase < ranked[j].phrase
	})
	if len(ranked) > topPhraseLimit {
		ranked = ranked[:topPhraseLimit]
	}
	phrases := make([]string, 0, len(ranked))
	for _, r := range ranked {
		phrases = append(phrases, r.phrase)
	}
	return phrases
}

func (e *Engine) matchesMarker(phrase string) bool {
	if len(e.markers) == 0 {
		return true
	}
	for _, marker := range e.markers {
		if strings.Contains(phrase, marker) {
			return true
		}
	}
	return false
}

// expand queries the suggestion provider for each seed phrase and each
// modifier variant, pacing requests with the configured delay.
func (e *Engine) expand(ctx context.Context, seeds []string) []string {
	var out []string
	first := true
	query := func(q string) {
		if !first {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return
			}
		}
		first = false
		results, err := e.suggester.Suggest(ctx, q)
		if err != nil {
			e.logger.Debug("suggestion lookup failed", zap.String("query", q), zap.Error(err))
			return
		}
		out = append(out, results...)
	}

	for _, seed := range seeds {
		if ctx.Err() != nil {
			return out
		}
		query(seed)
		for _, modifier := range e.modifiers {
			if ctx.Err() != nil {
				return out
			}
			query(fmt.Sprintf(modifier, seed))
		}
	}
	return out
}

// scoreSuggestions filters, scores, classifies, dedupes, and sorts.
func scoreSuggestions(suggestions []string) []Candidate {
	seen := make(map[string]bool)
	var candidates []Candidate
	for _, s := range suggestions {
		text := strings.ToLower(strings.TrimSpace(s))
		if text == "" || seen[text] {
			continue
		}
		if len(strings.Fields(text)) < 3 {
			continue
		}
		seen[text] = true
		candidates = append(candidates, Candidate{
			Text:   text,
			Score:  Score(text),
			Intent: ClassifyIntent(text),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

var questionMarkers = []string{"how", "what", "why", "where", "when"}
var commercialMarkers = []string{"buy", "price", "cost", "shop"}
var informationalMarkers = []string{"how to", "guide", "tips"}

// Score rates a suggestion for long-tail and intent signals.
func Score(text string) int {
	words := strings.Fields(text)
	score := 0
	switch {
	case len(words) >= 3 && len(words) <= 5:
		score += 20
	case len(words) > 5:
		score += 10
	}
	if containsWord(words, questionMarkers) {
		score += 15
	}
	if containsWord(words, commercialMarkers) {
		score += 10
	}
	if containsPhrase(text, informationalMarkers) {
		score += 10
	}
	return score
}

// ClassifyIntent infers the search intent behind a suggestion from the
// same marker sets the scorer uses.
func ClassifyIntent(text string) keywords.Intent {
	words := strings.Fields(text)
	switch {
	case containsWord(words, commercialMarkers):
		return keywords.IntentTransactional
	case containsPhrase(text, informationalMarkers):
		return keywords.IntentInformational
	case containsWord(words, []string{"vs", "versus", "compared"}):
		return keywords.IntentCommercial
	default:
		return keywords.IntentNavigational
	}
}

func containsWord(words, markers []string) bool {
	for _, w := range words {
		for _, m := range markers {
			if w == m {
				return true
			}
		}
	}
	return false
}

func containsPhrase(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// ngrams returns lowercase word windows of minLen..maxLen words.
func ngrams(text string, minLen, maxLen int) []string {
	words := tokenize(text)
	var out []string
	for size := minLen; size <= maxLen; size++ {
		for i := 0; i+size <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+size], " "))
		}
	}
	return out
}

// tokenize lowercases and strips non-alphanumeric runs.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// joinURL appends a path segment to a site base URL.
func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}
