package image

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderSubmitAndPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"job-9"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/job-9":
			_, _ = w.Write([]byte(`{"status":"COMPLETED","images":[{"url":"https://img.example.com/out.png"}],"retry_after":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "key-1")

	id, err := p.Submit(context.Background(), "a prompt")
	require.NoError(t, err)
	assert.Equal(t, "job-9", id)

	status, err := p.Poll(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
	require.Len(t, status.ImageURLs, 1)
	assert.Equal(t, "https://img.example.com/out.png", status.ImageURLs[0])
	assert.Equal(t, int64(3), int64(status.RetryAfter.Seconds()))
}

func TestHTTPProviderPollRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "k")
	status, err := p.Poll(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, status.State)
	assert.Equal(t, 2*time.Second, status.RetryAfter)
}

func TestGenerateRecoversFromRateLimitedPoll(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"id":"job-3"}`))
		case polls == 0:
			polls++
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			polls++
			_, _ = w.Write([]byte(`{"status":"completed","images":[{"url":"https://img.example.com/r.png"}]}`))
		}
	}))
	defer srv.Close()

	g := NewGenerator(NewHTTPProvider(srv.URL, "k"), nil, fastOptions(), nil)
	url, err := g.Generate(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/r.png", url)
	assert.Equal(t, 2, polls)
}

func TestHTTPProviderSubmitErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "k")
	_, err := p.Submit(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPProviderSubmitMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "k")
	_, err := p.Submit(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job id")
}
