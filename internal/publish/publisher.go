// Package publish sends finished drafts to the storefront blog as
// unpublished articles.
package publish

import (
	"context"
	"encoding/base64"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/content"
)

// ImageAttachment references the article's illustration: a remote URL, or
// base64-embedded data for a local file.
type ImageAttachment struct {
	SourceURL  string `json:"src,omitempty"`
	Attachment string `json:"attachment,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// ArticleRequest is the payload sent to the blog API. Articles are always
// created unpublished; a human flips them live from the storefront admin.
type ArticleRequest struct {
	Title     string           `json:"title" validate:"required"`
	Body      string           `json:"body_html" validate:"required"`
	Summary   string           `json:"summary_html" validate:"required"`
	Published bool             `json:"published"`
	Tags      []string         `json:"tags,omitempty"`
	Image     *ImageAttachment `json:"image,omitempty"`
}

// UserError is a field-level rejection from the blog API.
type UserError struct {
	Field   string
	Message string
}

// Article is the created article as reported by the API.
type Article struct {
	ID    string
	Title string
}

// Response is the blog API's answer to an article creation call.
type Response struct {
	Article    *Article
	UserErrors []UserError
}

// BlogAPI creates articles on the storefront blog.
type BlogAPI interface {
	CreateArticle(ctx context.Context, req *ArticleRequest) (*Response, error)
}

var validate = validator.New()

// Publisher validates and uploads one draft at a time. Per-post isolation
// is the orchestrator's job.
type Publisher struct {
	api    BlogAPI
	logger *zap.Logger
}

// NewPublisher builds a publisher over the given blog API.
func NewPublisher(api BlogAPI, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{api: api, logger: logger}
}

// Publish validates the draft locally, then creates an unpublished article
// for it. Drafts failing validation never reach the API.
func (p *Publisher) Publish(ctx context.Context, draft *content.PostDraft) (*Article, error) {
	req := BuildRequest(draft)
	if err := validate.Struct(req); err != nil {
		return nil, &ValidationError{Keyword: draft.Keyword, Message: "draft is missing required fields", Cause: err}
	}

	resp, err := p.api.CreateArticle(ctx, req)
	if err != nil {
		return nil, &Error{Keyword: draft.Keyword, Message: "article creation failed", Cause: err}
	}
	if len(resp.UserErrors) > 0 {
		return nil, &RemoteRejection{Keyword: draft.Keyword, UserErrors: resp.UserErrors}
	}
	if resp.Article == nil {
		return nil, &Error{Keyword: draft.Keyword, Message: "no article data in response"}
	}

	p.logger.Info("article created", zap.String("keyword", draft.Keyword), zap.String("article_id", resp.Article.ID))
	return resp.Article, nil
}

// BuildRequest maps a draft onto the article payload. The illustration is
// attached only when it is an absolute http(s) URL or a readable local
// file; anything else is dropped.
func BuildRequest(draft *content.PostDraft) *ArticleRequest {
	req := &ArticleRequest{
		Title:     strings.TrimSpace(draft.Title),
		Body:      strings.TrimSpace(draft.Content),
		Summary:   strings.TrimSpace(draft.Excerpt),
		Published: false,
		Tags:      draftTags(draft),
		Image:     imageAttachment(draft.Image),
	}
	return req
}

func draftTags(draft *content.PostDraft) []string {
	var tags []string
	if draft.Tab != "" {
		tags = append(tags, draft.Tab)
	}
	if draft.Intent != "" && draft.Intent != "unspecified" {
		tags = append(tags, string(draft.Intent))
	}
	return tags
}

func imageAttachment(ref string) *ImageAttachment {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return &ImageAttachment{SourceURL: ref}
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil
	}
	return &ImageAttachment{
		Attachment: base64.StdEncoding.EncodeToString(data),
		Filename:   filepath.Base(ref),
	}
}
