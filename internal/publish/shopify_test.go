package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopifyCreateArticle(t *testing.T) {
	var captured graphQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("X-Shopify-Access-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"data":{"articleCreate":{"article":{"id":"gid://shopify/Article/7","title":"Putty"},"userErrors":[]}}}`))
	}))
	defer srv.Close()

	client := NewShopifyClient("shop.example.com", "token-123", "gid://shopify/Blog/1")
	client.Endpoint = srv.URL

	resp, err := client.CreateArticle(context.Background(), &ArticleRequest{
		Title:   "Putty",
		Body:    "<p>B</p>",
		Summary: "S",
		Tags:    []string{"discovery"},
		Image:   &ImageAttachment{SourceURL: "https://img.example.com/1.png"},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Article)
	assert.Equal(t, "gid://shopify/Article/7", resp.Article.ID)

	article, ok := captured.Variables["article"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, article["isPublished"])
	assert.Equal(t, "gid://shopify/Blog/1", article["blogId"])
	img, ok := article["image"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://img.example.com/1.png", img["url"])
}

func TestShopifyUserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"articleCreate":{"article":null,"userErrors":[{"field":["article","title"],"message":"can't be blank"}]}}}`))
	}))
	defer srv.Close()

	client := NewShopifyClient("shop.example.com", "t", "b")
	client.Endpoint = srv.URL

	resp, err := client.CreateArticle(context.Background(), &ArticleRequest{Title: "T", Body: "B", Summary: "S"})
	require.NoError(t, err)
	require.Len(t, resp.UserErrors, 1)
	assert.Equal(t, "article.title", resp.UserErrors[0].Field)
	assert.Equal(t, "can't be blank", resp.UserErrors[0].Message)
	assert.Nil(t, resp.Article)
}

func TestShopifyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewShopifyClient("shop.example.com", "t", "b")
	client.Endpoint = srv.URL

	_, err := client.CreateArticle(context.Background(), &ArticleRequest{Title: "T", Body: "B", Summary: "S"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
