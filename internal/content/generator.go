package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/discovery"
	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/llm"
)

// Tool loop ceilings. Exceeding either aborts the draft with
// GenerationIncomplete rather than waiting on the model indefinitely.
const (
	DefaultMaxToolCalls = 8
	DefaultBudget       = 3 * time.Minute
)

const systemPrompt = `You are a blog writer for an online storefront. Write an SEO article for the keyword the user gives you.

Requirements:
- At least 800 words of article content.
- At least 3 subheadings (h2 or h3).
- At least 2 external links cited inline as HTML anchors. Use the search_urls tool to find real pages and the validate_url tool to confirm a link before citing it.
- At least 2 internal links chosen from the candidate list in the user message, cited inline as HTML anchors.
- A title under 60 characters with no colon.

When the article is ready, reply with exactly three sections:
<title>the title</title>
<excerpt>a one or two sentence summary</excerpt>
<content>the full HTML article body</content>`

// SearchTool is the subset of the discovery searcher the generator drives.
type SearchTool interface {
	Search(ctx context.Context, query string, limit int) ([]discovery.SearchResult, error)
	CheckReachable(ctx context.Context, url string) bool
}

// Options configures a draft generator.
type Options struct {
	TestMode      bool
	Model         string
	MaxToolCalls  int
	Budget        time.Duration
	InternalLinks []string
}

// Generator produces post drafts from keyword records.
type Generator struct {
	client   llm.Client
	searcher SearchTool
	opts     Options
	logger   *zap.Logger
}

// NewGenerator builds a draft generator. client and searcher may be nil in
// test mode.
func NewGenerator(client llm.Client, searcher SearchTool, opts Options, logger *zap.Logger) *Generator {
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = DefaultMaxToolCalls
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, searcher: searcher, opts: opts, logger: logger}
}

// Generate drafts one article for a keyword record. The record's metadata
// is copied onto the draft verbatim.
func (g *Generator) Generate(ctx context.Context, record keywords.Record) (*PostDraft, error) {
	if g.opts.TestMode {
		return g.stubDraft(record), nil
	}

	title, excerpt, body, err := g.runToolLoop(ctx, record.Query)
	if err != nil {
		return nil, err
	}

	draft := g.newDraft(record)
	draft.Title = title
	draft.Excerpt = excerpt
	draft.Content = body
	return draft, nil
}

// stubDraft is the deterministic test-mode output.
func (g *Generator) stubDraft(record keywords.Record) *PostDraft {
	draft := g.newDraft(record)
	draft.Title = fmt.Sprintf("Test Title for %s", record.Query)
	draft.Excerpt = fmt.Sprintf("This is a test excerpt for a blog post about %s.", record.Query)
	draft.Content = fmt.Sprintf("This is a test blog post about %s.", record.Query)
	return draft
}

func (g *Generator) newDraft(record keywords.Record) *PostDraft {
	return &PostDraft{
		Keyword:      record.Query,
		Intent:       record.Intent,
		Volume:       record.Volume,
		FrequentWord: record.FrequentWord,
		Tab:          record.Tab,
		Status:       StatusPending,
	}
}

// runToolLoop drives the model until it produces a final answer or hits a
// ceiling.
func (g *Generator) runToolLoop(ctx context.Context, keyword string) (title, excerpt, body string, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Budget)
	defer cancel()

	session, err := g.client.StartSession(ctx, llm.SessionOptions{
		Model:        g.opts.Model,
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		Tools: []llm.ToolSpec{
			{
				Name:        "search_urls",
				Description: "Search the web for pages relevant to a query. Returns verified URLs with page titles and descriptions.",
				Params: map[string]llm.ToolParam{
					"query":       {Description: "The search query.", Required: true},
					"num_results": {Description: "How many results to return.", Required: false},
				},
			},
			{
				Name:        "validate_url",
				Description: "Check whether a URL is reachable before citing it.",
				Params: map[string]llm.ToolParam{
					"url": {Description: "The URL to check.", Required: true},
				},
			},
		},
	})
	if err != nil {
		return "", "", "", &Error{Keyword: keyword, Message: "failed to start session", Cause: err}
	}

	reply, err := session.Send(ctx, g.userPrompt(keyword))
	toolCalls := 0
	for {
		if err != nil {
			if ctx.Err() != nil {
				return "", "", "", &GenerationIncomplete{Keyword: keyword, Reason: "time budget exhausted"}
			}
			return "", "", "", &Error{Keyword: keyword, Message: "model turn failed", Cause: err}
		}

		if len(reply.ToolCalls) == 0 {
			return ParseAnswer(keyword, reply.Text)
		}

		// The model may batch several calls in one turn; answer all of
		// them in a single message so none of its replies are lost.
		results := make([]llm.ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			toolCalls++
			if toolCalls > g.opts.MaxToolCalls {
				return "", "", "", &GenerationIncomplete{Keyword: keyword, Reason: "tool call budget exhausted"}
			}
			g.logger.Debug("tool call", zap.String("keyword", keyword), zap.String("tool", call.Name), zap.Int("n", toolCalls))
			results = append(results, llm.ToolResult{Name: call.Name, Response: g.dispatchTool(ctx, call)})
		}
		reply, err = session.SendToolResults(ctx, results)
	}
}

func (g *Generator) userPrompt(keyword string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the article for the keyword: %q\n", keyword)
	if len(g.opts.InternalLinks) > 0 {
		b.WriteString("\nInternal link candidates:\n")
		for _, link := range g.opts.InternalLinks {
			fmt.Fprintf(&b, "- %s\n", link)
		}
	}
	return b.String()
}

// dispatchTool executes one tool call. Unknown tools and bad arguments are
// reported back to the model rather than failing the draft.
func (g *Generator) dispatchTool(ctx context.Context, call llm.ToolCall) map[string]any {
	switch call.Name {
	case "search_urls":
		query := stringArg(call.Args, "query")
		if query == "" {
			return map[string]any{"error": "missing query argument"}
		}
		limit := intArg(call.Args, "num_results", 3)
		results, err := g.searcher.Search(ctx, query, limit)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		out := make([]map[string]any, 0, len(results))
		for _, r := range results {
			out = append(out, map[string]any{"url": r.URL, "title": r.Title, "description": r.Description})
		}
		return map[string]any{"results": out}
	case "validate_url":
		url := stringArg(call.Args, "url")
		if url == "" {
			return map[string]any{"error": "missing url argument"}
		}
		return map[string]any{"valid": g.searcher.CheckReachable(ctx, url)}
	default:
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
