// Package pipeline orchestrates the keyword-to-published-post flow with
// per-item failure isolation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/content"
	"github.com/jblacklock/beast-blogger/internal/image"
	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/publish"
	"github.com/jblacklock/beast-blogger/internal/store"
)

// Drafter produces a post draft for one keyword record.
type Drafter interface {
	Generate(ctx context.Context, record keywords.Record) (*content.PostDraft, error)
}

// Illustrator produces an image URL for a draft.
type Illustrator interface {
	Generate(ctx context.Context, draft *content.PostDraft) (string, error)
}

// BlogPublisher uploads one draft as an unpublished article.
type BlogPublisher interface {
	Publish(ctx context.Context, draft *content.PostDraft) (*publish.Article, error)
}

// Recorder persists run history. Optional; failures are warnings.
type Recorder interface {
	CreateRun(ctx context.Context, datasetID string, total int) (uuid.UUID, error)
	RecordItem(ctx context.Context, runID uuid.UUID, keyword, status, detail string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, succeeded, failed int) error
}

// RunContext carries everything one pipeline run needs. No package globals;
// the caller owns all handles.
type RunContext struct {
	Store          *store.Store
	DraftDatasetID string // empty means create a fresh dataset
	Drafter        Drafter
	Illustrator    Illustrator
	Publisher      BlogPublisher // nil disables publication
	Recorder       Recorder      // nil disables run history
	// PublishGate decides whether a selected record's draft is uploaded.
	// nil means publish every selected record when a publisher is set.
	PublishGate func(draft *content.PostDraft) bool
	// OnProgress is called after each attempted item with (done, total).
	OnProgress func(done, total int)
	Logger     *zap.Logger
}

// ItemResult is the outcome for one keyword.
type ItemResult struct {
	Keyword string
	Status  content.Status
	Err     error
}

// Summary reports a whole run.
type Summary struct {
	DatasetID string
	Total     int
	Succeeded int
	Failed    int
	Items     []ItemResult
}

// Run processes records in input order: draft, illustrate, optionally
// publish, then persist one dataset version per item. A failing item is
// recorded and skipped; the batch never aborts early.
func Run(ctx context.Context, rc *RunContext, records []keywords.Record) (*Summary, error) {
	logger := rc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	datasetID, err := ensureDataset(rc)
	if err != nil {
		return nil, err
	}

	summary := &Summary{DatasetID: datasetID, Total: len(records)}

	recorder := rc.Recorder
	var runID uuid.UUID
	if recorder != nil {
		runID, err = recorder.CreateRun(ctx, datasetID, len(records))
		if err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
			recorder = nil
		}
	}

	for i, record := range records {
		result := processItem(ctx, rc, logger, datasetID, record)
		summary.Items = append(summary.Items, result)
		if result.Err != nil || result.Status.IsFailed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}

		if recorder != nil {
			detail := ""
			if result.Err != nil {
				detail = result.Err.Error()
			}
			if err := recorder.RecordItem(ctx, runID, record.Query, string(result.Status), detail); err != nil {
				logger.Warn("failed to record item", zap.String("keyword", record.Query), zap.Error(err))
			}
		}
		if rc.OnProgress != nil {
			rc.OnProgress(i+1, len(records))
		}
	}

	if recorder != nil {
		status := "completed"
		if summary.Failed > 0 {
			status = "completed_with_failures"
		}
		if err := recorder.CompleteRun(ctx, runID, status, summary.Succeeded, summary.Failed); err != nil {
			logger.Warn("failed to complete run record", zap.Error(err))
		}
	}

	logger.Info("pipeline run finished",
		zap.String("dataset", datasetID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// processItem runs one keyword through draft, illustration, publication,
// and persistence. Only a draft failure keeps the item out of the dataset.
func processItem(ctx context.Context, rc *RunContext, logger *zap.Logger, datasetID string, record keywords.Record) ItemResult {
	draft, err := rc.Drafter.Generate(ctx, record)
	if err != nil {
		logger.Warn("draft failed", zap.String("keyword", record.Query), zap.Error(err))
		return ItemResult{Keyword: record.Query, Status: content.StatusFailed("draft"), Err: err}
	}

	imageURL, err := rc.Illustrator.Generate(ctx, draft)
	if err != nil {
		logger.Warn("illustration failed, using placeholder", zap.String("keyword", record.Query), zap.Error(err))
		imageURL = image.PlaceholderURL
	}
	draft.Image = imageURL
	draft.Status = content.StatusQueued

	var publishErr error
	if rc.Publisher != nil && record.Selected && (rc.PublishGate == nil || rc.PublishGate(draft)) {
		if _, err := rc.Publisher.Publish(ctx, draft); err != nil {
			logger.Warn("publication failed", zap.String("keyword", record.Query), zap.Error(err))
			draft.Status = content.StatusFailed(err.Error())
			publishErr = err
		} else {
			draft.Status = content.StatusUploaded
		}
	}

	if err := appendDraft(rc.Store, datasetID, draft, record.Query); err != nil {
		logger.Warn("failed to persist draft", zap.String("keyword", record.Query), zap.Error(err))
		return ItemResult{Keyword: record.Query, Status: content.StatusFailed("persist"), Err: err}
	}

	return ItemResult{Keyword: record.Query, Status: draft.Status, Err: publishErr}
}

// ensureDataset resolves or creates the generated-post dataset.
func ensureDataset(rc *RunContext) (string, error) {
	if rc.DraftDatasetID != "" {
		if _, err := rc.Store.Get(rc.DraftDatasetID); err != nil {
			return "", err
		}
		return rc.DraftDatasetID, nil
	}
	return rc.Store.Create(
		store.Snapshot{Columns: content.SnapshotColumns()},
		"pipeline",
		map[string]string{"kind": "posts"},
	)
}

// appendDraft adds one draft to the dataset as a new version.
func appendDraft(s *store.Store, datasetID string, draft *content.PostDraft, keyword string) error {
	snap, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	drafts := content.FromRows(snap.Columns, snap.Rows)
	drafts = append(drafts, *draft)
	next := store.Snapshot{Columns: content.SnapshotColumns(), Rows: content.ToRows(drafts)}
	return s.Update(datasetID, next, fmt.Sprintf("Add post for %q", keyword), store.NoVersionCheck)
}
