// Package fetch provides HTTP fetching, reachability checks, and
// HTML-to-text helpers shared by discovery and content generation.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// ReachabilityTimeout bounds URL validation pings.
const ReachabilityTimeout = 5 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; BeastBlogger/1.0)"

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	UseBrowser bool // render with headless Chrome when plain HTTP yields too little content
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Client fetches pages and checks URL reachability. The zero value is not
// usable; construct with NewClient.
type Client struct {
	opts *Options
	http *http.Client
}

// NewClient builds a fetch client with the given options.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

// URL retrieves HTML content from a URL. Falls back to headless browser
// rendering when configured and the plain response looks like an
// unrendered SPA shell.
func (c *Client) URL(ctx context.Context, urlStr string) (*Result, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if c.opts.UseBrowser && ShouldUseBrowser(result.HTML) {
		rendered, err := WithBrowser(ctx, urlStr, c.opts.Timeout*3)
		if err == nil && rendered != "" {
			result.HTML = rendered
		}
	}

	return result, nil
}

// CheckReachable reports whether a URL answers a HEAD request with a
// non-error status. Used as the validate_url tool and before citing links.
func (c *Client) CheckReachable(ctx context.Context, urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, ReachabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, urlStr, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < http.StatusBadRequest
}

// PageMeta holds the title and meta description scraped from a page head.
type PageMeta struct {
	Title       string
	Description string
}

// Meta fetches a URL and extracts its title and meta description. Failures
// degrade to an empty PageMeta so callers can annotate best-effort.
func (c *Client) Meta(ctx context.Context, urlStr string) PageMeta {
	result, err := c.URL(ctx, urlStr)
	if err != nil {
		return PageMeta{}
	}
	return ExtractMeta(result.HTML)
}

// ExtractMeta parses title and meta description out of HTML.
func ExtractMeta(html string) PageMeta {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageMeta{}
	}
	meta := PageMeta{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	return meta
}

// TextBlock is one extracted block of page text with its heading weight.
type TextBlock struct {
	Text   string
	Weight int
}

// ExtractWeightedText pulls heading and paragraph text out of HTML with
// the weights the discovery engine uses: h1 3x, h2 2x, h3 and p 1x.
func ExtractWeightedText(html string) ([]TextBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, script, style, noscript").Remove()

	var blocks []TextBlock
	appendAll := func(selector string, weight int) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				blocks = append(blocks, TextBlock{Text: text, Weight: weight})
			}
		})
	}
	appendAll("h1", 3)
	appendAll("h2", 2)
	appendAll("h3", 1)
	appendAll("p", 1)

	return blocks, nil
}

// StripTags reduces an HTML fragment to its visible text with normalized
// whitespace.
func StripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
