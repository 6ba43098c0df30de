package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblacklock/beast-blogger/internal/content"
	"github.com/jblacklock/beast-blogger/internal/keywords"
)

type fakeAPI struct {
	requests []*ArticleRequest
	response *Response
	err      error
}

func (f *fakeAPI) CreateArticle(_ context.Context, req *ArticleRequest) (*Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func validDraft() *content.PostDraft {
	return &content.PostDraft{
		Keyword: "stress relief putty",
		Title:   "Putty for Calm Hands",
		Excerpt: "Putty keeps hands busy.",
		Content: "<p>Body</p>",
		Image:   "https://img.example.com/1.png",
		Intent:  keywords.IntentInformational,
		Tab:     "discovery",
	}
}

func TestPublishSuccess(t *testing.T) {
	api := &fakeAPI{response: &Response{Article: &Article{ID: "42", Title: "Putty for Calm Hands"}}}
	p := NewPublisher(api, nil)

	article, err := p.Publish(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Equal(t, "42", article.ID)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.False(t, req.Published)
	assert.Equal(t, "Putty for Calm Hands", req.Title)
	require.NotNil(t, req.Image)
	assert.Equal(t, "https://img.example.com/1.png", req.Image.SourceURL)
	assert.Contains(t, req.Tags, "discovery")
	assert.Contains(t, req.Tags, "informational")
}

func TestPublishValidationFailureNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{response: &Response{Article: &Article{ID: "42"}}}
	p := NewPublisher(api, nil)

	draft := validDraft()
	draft.Content = "   "
	_, err := p.Publish(context.Background(), draft)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, api.requests)
}

func TestPublishRemoteRejection(t *testing.T) {
	api := &fakeAPI{response: &Response{UserErrors: []UserError{
		{Field: "title", Message: "is too long"},
		{Field: "body", Message: "is blank"},
	}}}
	p := NewPublisher(api, nil)

	_, err := p.Publish(context.Background(), validDraft())
	var rerr *RemoteRejection
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "title: is too long, body: is blank")
}

func TestPublishEmptyResponse(t *testing.T) {
	api := &fakeAPI{response: &Response{}}
	p := NewPublisher(api, nil)

	_, err := p.Publish(context.Background(), validDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no article data in response")
}

func TestPublishTransportError(t *testing.T) {
	api := &fakeAPI{err: fmt.Errorf("connection refused")}
	p := NewPublisher(api, nil)

	_, err := p.Publish(context.Background(), validDraft())
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.ErrorContains(t, err, "connection refused")
}

func TestImageAttachmentVariants(t *testing.T) {
	assert.Nil(t, imageAttachment(""))
	assert.Nil(t, imageAttachment("ftp://example.com/x.png"))
	assert.Nil(t, imageAttachment("/no/such/file.png"))

	remote := imageAttachment("https://img.example.com/a.png")
	require.NotNil(t, remote)
	assert.Equal(t, "https://img.example.com/a.png", remote.SourceURL)
	assert.Empty(t, remote.Attachment)

	path := filepath.Join(t.TempDir(), "local.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	local := imageAttachment(path)
	require.NotNil(t, local)
	assert.NotEmpty(t, local.Attachment)
	assert.Equal(t, "local.png", local.Filename)
	assert.Empty(t, local.SourceURL)
}
