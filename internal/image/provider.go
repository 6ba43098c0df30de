package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPProvider drives a job-based image generation API: POST a prompt to
// create a job, then GET the job until it reaches a terminal state.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPProvider builds a provider for the given generations endpoint.
func NewHTTPProvider(endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type submitResponse struct {
	ID string `json:"id"`
}

type pollResponse struct {
	Status string `json:"status"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	RetryAfterSeconds int `json:"retry_after,omitempty"`
}

// Submit creates a generation job and returns its id.
func (p *HTTPProvider) Submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("image API returned no job id")
	}
	return parsed.ID, nil
}

// Poll reads the current state of a generation job.
func (p *HTTPProvider) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Rate limiting is not terminal: keep the job pending and let the
		// Retry-After header stretch the next wait.
		return &JobStatus{State: StateProcessing, RetryAfter: retryAfterHint(resp.Header)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	var parsed pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode poll response: %w", err)
	}

	status := &JobStatus{
		State:      JobState(strings.ToLower(parsed.Status)),
		RetryAfter: time.Duration(parsed.RetryAfterSeconds) * time.Second,
	}
	for _, img := range parsed.Images {
		status.ImageURLs = append(status.ImageURLs, img.URL)
	}
	return status, nil
}

// retryAfterHint parses a Retry-After header given in seconds. Absent or
// unparseable values yield zero, leaving the regular backoff in charge.
func retryAfterHint(h http.Header) time.Duration {
	seconds, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
