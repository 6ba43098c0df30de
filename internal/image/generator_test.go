package image

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblacklock/beast-blogger/internal/content"
)

type fakeProvider struct {
	statuses  []*JobStatus
	submitErr error
	pollErr   error
	prompts   []string
	polls     int
}

func (f *fakeProvider) Submit(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeProvider) Poll(_ context.Context, _ string) (*JobStatus, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	i := f.polls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.polls++
	return f.statuses[i], nil
}

func fastOptions() Options {
	return Options{MaxAttempts: 4, BaseInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func testDraft() *content.PostDraft {
	return &content.PostDraft{Keyword: "stress relief putty", Excerpt: "Squeezing putty relaxes tense shoulders quickly."}
}

func TestGenerateReturnsFirstImageURL(t *testing.T) {
	provider := &fakeProvider{statuses: []*JobStatus{
		{State: StateProcessing},
		{State: StateCompleted, ImageURLs: []string{"", "https://img.example.com/1.png"}},
	}}

	g := NewGenerator(provider, nil, fastOptions(), nil)
	url, err := g.Generate(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/1.png", url)
	assert.Equal(t, 2, provider.polls)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "stress relief putty")
	assert.Contains(t, provider.prompts[0], styleSuffix)
}

func TestGeneratePerpetualProcessingTerminates(t *testing.T) {
	provider := &fakeProvider{statuses: []*JobStatus{{State: StateProcessing}}}

	g := NewGenerator(provider, nil, fastOptions(), nil)
	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), testDraft())
		done <- err
	}()

	select {
	case err := <-done:
		var ierr *Error
		require.ErrorAs(t, err, &ierr)
		assert.Contains(t, ierr.Message, "still pending")
		assert.Equal(t, 4, provider.polls)
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not terminate")
	}
}

func TestGenerateFailedJob(t *testing.T) {
	provider := &fakeProvider{statuses: []*JobStatus{{State: StateFailed}}}

	g := NewGenerator(provider, nil, fastOptions(), nil)
	_, err := g.Generate(context.Background(), testDraft())
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Message, "failed")
}

func TestGenerateSubmitError(t *testing.T) {
	provider := &fakeProvider{submitErr: fmt.Errorf("quota exceeded")}

	g := NewGenerator(provider, nil, fastOptions(), nil)
	_, err := g.Generate(context.Background(), testDraft())
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGenerateTestModeSkipsProvider(t *testing.T) {
	g := NewGenerator(nil, nil, Options{TestMode: true}, nil)
	url, err := g.Generate(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, PlaceholderURL, url)
}

func TestGenerateHonorsRetryAfter(t *testing.T) {
	provider := &fakeProvider{statuses: []*JobStatus{
		{State: StateProcessing, RetryAfter: time.Millisecond},
		{State: StateSucceeded, ImageURLs: []string{"https://img.example.com/2.png"}},
	}}

	g := NewGenerator(provider, nil, fastOptions(), nil)
	url, err := g.Generate(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/2.png", url)
}

func TestPromptBuilderSalientTerms(t *testing.T) {
	terms := SalientTerms("Squeezing putty relaxes tense shoulders quickly. Second sentence ignored.")
	assert.Equal(t, []string{"squeezing", "putty", "relaxes"}, terms)

	assert.Empty(t, SalientTerms("a is of it"))
	assert.Empty(t, SalientTerms(""))
}

func TestPromptBuilderNilSourceVariesScenarios(t *testing.T) {
	b := NewPromptBuilder(nil)
	seen := make(map[string]bool)
	for i := 0; i < 60; i++ {
		seen[b.Build("stress putty", "")] = true
	}
	assert.Greater(t, len(seen), 1, "default builder should rotate scenario templates")
}

func TestPromptBuilderDeterministicWithSeed(t *testing.T) {
	a := NewPromptBuilder(rand.New(rand.NewSource(7))).Build("stress putty", "Putty calms busy hands.")
	b := NewPromptBuilder(rand.New(rand.NewSource(7))).Build("stress putty", "Putty calms busy hands.")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "stress putty")
	assert.True(t, strings.HasSuffix(a, styleSuffix))
}
