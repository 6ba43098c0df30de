package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const shopifyAPIVersion = "2024-07"

const articleCreateMutation = `mutation CreateArticle($article: ArticleCreateInput!) {
  articleCreate(article: $article) {
    article {
      id
      title
    }
    userErrors {
      field
      message
    }
  }
}`

// ShopifyClient implements BlogAPI against the Shopify Admin GraphQL API.
type ShopifyClient struct {
	shopDomain string
	token      string
	blogID     string
	http       *http.Client
	// Endpoint overrides the admin URL; tests point it at a fixture
	// server.
	Endpoint string
}

// NewShopifyClient builds a client for one shop's blog.
func NewShopifyClient(shopDomain, token, blogID string) *ShopifyClient {
	return &ShopifyClient{
		shopDomain: shopDomain,
		token:      token,
		blogID:     blogID,
		http:       &http.Client{Timeout: 30 * time.Second},
		Endpoint:   fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, shopifyAPIVersion),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type articleCreateResponse struct {
	Data struct {
		ArticleCreate struct {
			Article *struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"article"`
			UserErrors []graphQLUserError `json:"userErrors"`
		} `json:"articleCreate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateArticle creates an unpublished blog article via articleCreate.
func (c *ShopifyClient) CreateArticle(ctx context.Context, req *ArticleRequest) (*Response, error) {
	article := map[string]any{
		"blogId":      c.blogID,
		"title":       req.Title,
		"body":        req.Body,
		"summary":     req.Summary,
		"isPublished": req.Published,
	}
	if len(req.Tags) > 0 {
		article["tags"] = req.Tags
	}
	// The GraphQL input takes image URLs only; base64 attachments have no
	// transport here and are dropped.
	if req.Image != nil && req.Image.SourceURL != "" {
		article["image"] = map[string]any{"url": req.Image.SourceURL}
	}

	body, err := json.Marshal(graphQLRequest{
		Query:     articleCreateMutation,
		Variables: map[string]any{"article": article},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal article request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", c.token)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("article request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blog API returned status %d", httpResp.StatusCode)
	}

	var parsed articleCreateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode article response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("blog API error: %s", parsed.Errors[0].Message)
	}

	resp := &Response{}
	for _, ue := range parsed.Data.ArticleCreate.UserErrors {
		resp.UserErrors = append(resp.UserErrors, UserError{
			Field:   strings.Join(ue.Field, "."),
			Message: ue.Message,
		})
	}
	if a := parsed.Data.ArticleCreate.Article; a != nil {
		resp.Article = &Article{ID: a.ID, Title: a.Title}
	}
	return resp, nil
}
