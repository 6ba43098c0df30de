package image

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/content"
)

// PlaceholderURL is substituted when illustration fails; posts always
// publish with some image.
const PlaceholderURL = "https://placehold.co/600x400/000000/FFFFFF.png"

// Polling defaults: exponential from 2s capped at 30s, at most 10 polls.
const (
	DefaultBaseInterval = 2 * time.Second
	DefaultMaxInterval  = 30 * time.Second
	DefaultMaxAttempts  = 10
)

// JobState is a provider-reported generation state.
type JobState string

// Provider job states. Providers vary in vocabulary; both success
// spellings are accepted.
const (
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateSucceeded  JobState = "succeeded"
	StateFailed     JobState = "failed"
	StateCanceled   JobState = "canceled"
)

// JobStatus is one poll result.
type JobStatus struct {
	State JobState
	// ImageURLs lists result URLs; entries may be empty when expired.
	ImageURLs []string
	// RetryAfter, when positive, overrides the backoff wait before the
	// next poll.
	RetryAfter time.Duration
}

// Provider is an asynchronous image generation backend.
type Provider interface {
	Submit(ctx context.Context, prompt string) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (*JobStatus, error)
}

// Options configures the illustration generator.
type Options struct {
	TestMode     bool
	MaxAttempts  int
	BaseInterval time.Duration
	MaxInterval  time.Duration
}

// Generator illustrates post drafts.
type Generator struct {
	provider Provider
	prompts  *PromptBuilder
	opts     Options
	logger   *zap.Logger
}

// NewGenerator builds an illustration generator. provider may be nil in
// test mode.
func NewGenerator(provider Provider, prompts *PromptBuilder, opts Options, logger *zap.Logger) *Generator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = DefaultBaseInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, prompts: prompts, opts: opts, logger: logger}
}

// Generate submits an illustration job for the draft and polls it to a
// terminal state, returning the image URL.
func (g *Generator) Generate(ctx context.Context, draft *content.PostDraft) (string, error) {
	if g.opts.TestMode {
		return PlaceholderURL, nil
	}

	prompt := g.prompts.Build(draft.Keyword, draft.Excerpt)
	jobID, err := g.provider.Submit(ctx, prompt)
	if err != nil {
		return "", &Error{Keyword: draft.Keyword, Message: "failed to submit image job", Cause: err}
	}
	g.logger.Debug("image job submitted", zap.String("keyword", draft.Keyword), zap.String("job", jobID))

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = g.opts.BaseInterval
	schedule.MaxInterval = g.opts.MaxInterval
	schedule.MaxElapsedTime = 0 // attempts are the ceiling, not elapsed time
	schedule.Reset()

	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		status, err := g.provider.Poll(ctx, jobID)
		if err != nil {
			return "", &Error{Keyword: draft.Keyword, Message: "poll failed", Cause: err}
		}

		switch status.State {
		case StateCompleted, StateSucceeded:
			for _, u := range status.ImageURLs {
				if u != "" {
					return u, nil
				}
			}
			return "", &Error{Keyword: draft.Keyword, Message: "job completed without an image URL"}
		case StateFailed, StateCanceled:
			return "", &Error{Keyword: draft.Keyword, Message: fmt.Sprintf("job ended in state %q", status.State)}
		}

		wait := schedule.NextBackOff()
		if status.RetryAfter > 0 {
			wait = status.RetryAfter
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", &Error{Keyword: draft.Keyword, Message: "polling canceled", Cause: ctx.Err()}
		}
	}

	return "", &Error{Keyword: draft.Keyword, Message: fmt.Sprintf("job still pending after %d polls", g.opts.MaxAttempts)}
}
