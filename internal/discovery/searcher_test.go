package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblacklock/beast-blogger/internal/fetch"
)

type fakeURLProvider struct {
	byQuery map[string][]string
	queries []string
}

func (f *fakeURLProvider) Search(_ context.Context, query string, _ int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.byQuery[query], nil
}

func TestSearchAnnotatesReachableURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a", "/b", "/c":
			_, _ = w.Write([]byte(`<html><head><title>Putty Guide</title><meta name="description" content="All about putty."></head><body><p>x</p></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider := &fakeURLProvider{byQuery: map[string][]string{
		"stress putty": {srv.URL + "/a", srv.URL + "/missing", srv.URL + "/b", srv.URL + "/c"},
	}}
	searcher := NewSearcher(provider, fetch.NewClient(nil), nil)

	results, err := searcher.Search(context.Background(), "stress putty", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, srv.URL+"/a", results[0].URL)
	assert.Equal(t, "Putty Guide", results[0].Title)
	assert.Equal(t, "All about putty.", results[0].Description)
}

func TestSearchBroadensWhenTooFewResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>ok</title></head><body></body></html>`))
	}))
	defer srv.Close()

	provider := &fakeURLProvider{byQuery: map[string][]string{
		"stress relief putty exercises": {srv.URL + "/only"},
		"stress relief guide":           {srv.URL + "/g1", srv.URL + "/g2", srv.URL + "/only"},
	}}
	searcher := NewSearcher(provider, fetch.NewClient(nil), nil)

	results, err := searcher.Search(context.Background(), "stress relief putty exercises", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"stress relief putty exercises", "stress relief guide"}, provider.queries)
	require.Len(t, results, 3)

	urls := []string{results[0].URL, results[1].URL, results[2].URL}
	assert.Contains(t, urls, srv.URL+"/only")
	assert.Contains(t, urls, srv.URL+"/g1")
	assert.Contains(t, urls, srv.URL+"/g2")
}

func TestBroadenQuery(t *testing.T) {
	assert.Equal(t, "stress relief guide", BroadenQuery("stress relief putty exercises"))
	assert.Equal(t, "putty guide", BroadenQuery("putty"))
}
