// Package db provides optional PostgreSQL run history for pipeline runs.
// Connection failures are warnings, not pipeline failures.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun records a new pipeline run and returns its id.
func (db *DB) CreateRun(ctx context.Context, datasetID string, total int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (dataset_id, total_items, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		datasetID, total,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// RecordItem upserts the outcome of one keyword within a run.
func (db *DB) RecordItem(ctx context.Context, runID uuid.UUID, keyword, status, detail string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_items (run_id, keyword, status, detail)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, keyword) DO UPDATE SET status = $3, detail = $4, updated_at = NOW()`,
		runID, keyword, status, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record item %s: %w", keyword, err)
	}
	return nil
}

// CompleteRun marks a pipeline run as finished.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, succeeded, failed int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, succeeded = $2, failed = $3, completed_at = NOW() WHERE id = $4`,
		status, succeeded, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// Run is a recorded pipeline run.
type Run struct {
	ID          uuid.UUID
	DatasetID   string
	TotalItems  int
	Succeeded   int
	Failed      int
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// GetRun retrieves a pipeline run by id.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, dataset_id, total_items, succeeded, failed, status, created_at, completed_at
		 FROM pipeline_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.DatasetID, &run.TotalItems, &run.Succeeded, &run.Failed, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}
