package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblacklock/beast-blogger/internal/content"
	"github.com/jblacklock/beast-blogger/internal/image"
	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/publish"
	"github.com/jblacklock/beast-blogger/internal/store"
)

type stubDrafter struct {
	failOn map[string]bool
}

func (d *stubDrafter) Generate(_ context.Context, record keywords.Record) (*content.PostDraft, error) {
	if d.failOn[record.Query] {
		return nil, &content.GenerationIncomplete{Keyword: record.Query, Reason: "tool call budget exhausted"}
	}
	return &content.PostDraft{
		Keyword: record.Query,
		Title:   "Title for " + record.Query,
		Excerpt: "Excerpt for " + record.Query + ".",
		Content: "<p>Body for " + record.Query + "</p>",
		Intent:  record.Intent,
		Volume:  record.Volume,
		Tab:     record.Tab,
		Status:  content.StatusPending,
	}, nil
}

type stubIllustrator struct {
	failOn map[string]bool
}

func (i *stubIllustrator) Generate(_ context.Context, draft *content.PostDraft) (string, error) {
	if i.failOn[draft.Keyword] {
		return "", fmt.Errorf("image provider down")
	}
	return "https://img.example.com/" + draft.Keyword + ".png", nil
}

type stubPublisher struct {
	rejectOn map[string]bool
	calls    []string
}

func (p *stubPublisher) Publish(_ context.Context, draft *content.PostDraft) (*publish.Article, error) {
	p.calls = append(p.calls, draft.Keyword)
	if p.rejectOn[draft.Keyword] {
		return nil, &publish.RemoteRejection{Keyword: draft.Keyword, UserErrors: []publish.UserError{{Field: "title", Message: "is blank"}}}
	}
	return &publish.Article{ID: "1", Title: draft.Title}, nil
}

type memRecorder struct {
	created   bool
	items     []string
	completed string
	createErr error
}

func (r *memRecorder) CreateRun(_ context.Context, _ string, _ int) (uuid.UUID, error) {
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	r.created = true
	return uuid.New(), nil
}

func (r *memRecorder) RecordItem(_ context.Context, _ uuid.UUID, keyword, status, _ string) error {
	r.items = append(r.items, keyword+"="+status)
	return nil
}

func (r *memRecorder) CompleteRun(_ context.Context, _ uuid.UUID, status string, _, _ int) error {
	r.completed = status
	return nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func testRecords() []keywords.Record {
	return []keywords.Record{
		{Query: "stress relief putty", Selected: true},
		{Query: "putty exercises", Selected: true},
		{Query: "broken keyword"},
	}
}

func TestRunEndToEnd(t *testing.T) {
	s := testStore(t)
	publisher := &stubPublisher{rejectOn: map[string]bool{"putty exercises": true}}
	recorder := &memRecorder{}
	var progress []int

	rc := &RunContext{
		Store:       s,
		Drafter:     &stubDrafter{failOn: map[string]bool{"broken keyword": true}},
		Illustrator: &stubIllustrator{failOn: map[string]bool{"putty exercises": true}},
		Publisher:   publisher,
		Recorder:    recorder,
		OnProgress:  func(done, total int) { progress = append(progress, done) },
	}

	summary, err := Run(context.Background(), rc, testRecords())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Items, 3)

	// Item outcomes in input order.
	assert.Equal(t, content.StatusUploaded, summary.Items[0].Status)
	assert.True(t, summary.Items[1].Status.IsFailed())
	require.Error(t, summary.Items[1].Err)
	var rejection *publish.RemoteRejection
	assert.ErrorAs(t, summary.Items[1].Err, &rejection)
	assert.True(t, summary.Items[2].Status.IsFailed())
	var incomplete *content.GenerationIncomplete
	assert.ErrorAs(t, summary.Items[2].Err, &incomplete)

	// The failed draft never reached the dataset; the others did, in order.
	snap, err := s.Get(summary.DatasetID)
	require.NoError(t, err)
	drafts := content.FromRows(snap.Columns, snap.Rows)
	require.Len(t, drafts, 2)
	assert.Equal(t, "stress relief putty", drafts[0].Keyword)
	assert.Equal(t, "putty exercises", drafts[1].Keyword)

	// Illustration failure fell back to the placeholder.
	assert.Equal(t, image.PlaceholderURL, drafts[1].Image)
	assert.Equal(t, "https://img.example.com/stress relief putty.png", drafts[0].Image)

	// One version per persisted item plus the initial one.
	history, err := s.History(summary.DatasetID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Contains(t, history[1].Comment, "stress relief putty")

	// Progress is monotonic over attempted items.
	assert.Equal(t, []int{1, 2, 3}, progress)

	// Run history captured everything.
	assert.True(t, recorder.created)
	assert.Len(t, recorder.items, 3)
	assert.Equal(t, "completed_with_failures", recorder.completed)
}

func TestRunUnselectedRecordsAreNotPublished(t *testing.T) {
	s := testStore(t)
	publisher := &stubPublisher{}

	rc := &RunContext{
		Store:       s,
		Drafter:     &stubDrafter{},
		Illustrator: &stubIllustrator{},
		Publisher:   publisher,
	}

	summary, err := Run(context.Background(), rc, []keywords.Record{{Query: "unselected keyword"}})
	require.NoError(t, err)
	assert.Empty(t, publisher.calls)
	assert.Equal(t, content.StatusQueued, summary.Items[0].Status)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunPublishGate(t *testing.T) {
	s := testStore(t)
	publisher := &stubPublisher{}

	rc := &RunContext{
		Store:       s,
		Drafter:     &stubDrafter{},
		Illustrator: &stubIllustrator{},
		Publisher:   publisher,
		PublishGate: func(draft *content.PostDraft) bool { return false },
	}

	_, err := Run(context.Background(), rc, []keywords.Record{{Query: "gated keyword", Selected: true}})
	require.NoError(t, err)
	assert.Empty(t, publisher.calls)
}

func TestRunRecorderFailureIsNonFatal(t *testing.T) {
	s := testStore(t)
	recorder := &memRecorder{createErr: fmt.Errorf("connection refused")}

	rc := &RunContext{
		Store:       s,
		Drafter:     &stubDrafter{},
		Illustrator: &stubIllustrator{},
		Recorder:    recorder,
	}

	summary, err := Run(context.Background(), rc, []keywords.Record{{Query: "some keyword"}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, recorder.items)
}

func TestRunAppendsToExistingDataset(t *testing.T) {
	s := testStore(t)
	id, err := s.Create(store.Snapshot{Columns: content.SnapshotColumns()}, "pipeline", map[string]string{"kind": "posts"})
	require.NoError(t, err)

	rc := &RunContext{
		Store:          s,
		DraftDatasetID: id,
		Drafter:        &stubDrafter{},
		Illustrator:    &stubIllustrator{},
	}

	summary, err := Run(context.Background(), rc, []keywords.Record{{Query: "first"}})
	require.NoError(t, err)
	assert.Equal(t, id, summary.DatasetID)

	_, err = Run(context.Background(), rc, []keywords.Record{{Query: "second"}})
	require.NoError(t, err)

	snap, err := s.Get(id)
	require.NoError(t, err)
	drafts := content.FromRows(snap.Columns, snap.Rows)
	require.Len(t, drafts, 2)
	assert.Equal(t, "first", drafts[0].Keyword)
	assert.Equal(t, "second", drafts[1].Keyword)
}

func TestRunUnknownDatasetFails(t *testing.T) {
	s := testStore(t)
	rc := &RunContext{
		Store:          s,
		DraftDatasetID: "no-such-id",
		Drafter:        &stubDrafter{},
		Illustrator:    &stubIllustrator{},
	}

	_, err := Run(context.Background(), rc, nil)
	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
}
