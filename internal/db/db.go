// Package db provides an optional PostgreSQL archive of completed runs.
//
// Expected schema:
//
//	CREATE TABLE mention_runs (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    session_id TEXT NOT NULL,
//	    total_essays INT NOT NULL,
//	    status TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    completed_at TIMESTAMPTZ
//	);
//
//	CREATE TABLE mention_results (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    run_id UUID NOT NULL REFERENCES mention_runs(id) ON DELETE CASCADE,
//	    essay_title TEXT NOT NULL,
//	    essay_url TEXT NOT NULL,
//	    hit_count INT NOT NULL,
//	    max_points INT NOT NULL,
//	    hits JSONB NOT NULL,
//	    processed_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (run_id, essay_title)
//	);
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgoodwin/essayradar/internal/types"
)

// Archive wraps a PostgreSQL connection pool.
type Archive struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*Archive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Archive{pool: pool}, nil
}

// Close closes the connection pool.
func (a *Archive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// CreateRun inserts a run record for a session and returns its ID.
func (a *Archive) CreateRun(ctx context.Context, sessionID string, totalEssays int) (uuid.UUID, error) {
	var id uuid.UUID
	err := a.pool.QueryRow(ctx,
		`INSERT INTO mention_runs (session_id, total_essays, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		sessionID, totalEssays,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// SaveResults stores every essay's result for a run. Re-archiving the same
// essay for a run overwrites the previous row.
func (a *Archive) SaveResults(ctx context.Context, runID uuid.UUID, results map[string]*types.EssayResult) error {
	for key, result := range results {
		hitsJSON, err := json.Marshal(result.Hits)
		if err != nil {
			return fmt.Errorf("failed to marshal hits for %q: %w", key, err)
		}
		_, err = a.pool.Exec(ctx,
			`INSERT INTO mention_results (run_id, essay_title, essay_url, hit_count, max_points, hits, processed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (run_id, essay_title)
			 DO UPDATE SET essay_url = $3, hit_count = $4, max_points = $5, hits = $6, processed_at = $7`,
			runID, result.Essay.Title, result.Essay.URL, result.HitCount, result.MaxPoints, hitsJSON, result.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save result for %q: %w", key, err)
		}
	}
	return nil
}

// CompleteRun marks a run as completed.
func (a *Archive) CompleteRun(ctx context.Context, runID uuid.UUID) error {
	_, err := a.pool.Exec(ctx,
		`UPDATE mention_runs SET status = 'completed', completed_at = NOW() WHERE id = $1`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// ListRuns returns archived runs, newest first.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.pool.Query(ctx,
		`SELECT id, session_id, total_essays, status, created_at, completed_at
		 FROM mention_runs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TotalEssays, &r.Status, &r.CreatedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
