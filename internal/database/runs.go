package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IngestionRun tracks one batch ingestion (CLI directory ingest or a
// multi-file API upload) across its files.
type IngestionRun struct {
	ID          string     `json:"id"` // run_{uuid}
	Source      string     `json:"source"` // 'cli', 'api'
	Status      string     `json:"status"` // 'running', 'completed', 'failed'
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	TotalFiles  int        `json:"total_files"`
	Accepted    int        `json:"accepted"`
	Rejected    int        `json:"rejected"`
	Duplicates  int        `json:"duplicates"`
	CreatedAt   time.Time  `json:"created_at"`
}

const runColumns = `
	id, source, status, started_at, completed_at,
	total_files, accepted, rejected, duplicates, created_at`

// StartIngestionRun records the beginning of a batch ingestion
func StartIngestionRun(ctx context.Context, source string, totalFiles int) (*IngestionRun, error) {
	run := &IngestionRun{
		ID:         GenerateRunID(),
		Source:     source,
		Status:     "running",
		StartedAt:  time.Now(),
		TotalFiles: totalFiles,
		CreatedAt:  time.Now(),
	}

	_, err := Pool().Exec(ctx, `
		INSERT INTO ingestion_runs (
			id, source, status, started_at, total_files, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`, run.ID, run.Source, run.Status, run.StartedAt, run.TotalFiles, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create ingestion run: %w", err)
	}
	return run, nil
}

// CompleteIngestionRun finalizes a run with its per-file outcome counts
func CompleteIngestionRun(ctx context.Context, runID string, accepted, rejected, duplicates int, failed bool) error {
	status := "completed"
	if failed {
		status = "failed"
	}

	_, err := Pool().Exec(ctx, `
		UPDATE ingestion_runs
		SET status = $1,
		    completed_at = $2,
		    accepted = $3,
		    rejected = $4,
		    duplicates = $5
		WHERE id = $6
	`, status, time.Now(), accepted, rejected, duplicates, runID)
	return err
}

func scanRun(row interface{ Scan(dest ...any) error }) (*IngestionRun, error) {
	var run IngestionRun
	err := row.Scan(
		&run.ID, &run.Source, &run.Status, &run.StartedAt, &run.CompletedAt,
		&run.TotalFiles, &run.Accepted, &run.Rejected, &run.Duplicates, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListIngestionRuns retrieves runs newest-first with an optional status filter
func ListIngestionRuns(ctx context.Context, status string, limit, offset int) ([]IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM ingestion_runs WHERE 1=1`
	args := []any{}
	n := 0

	if status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, status)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, offset)

	rows, err := Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]IngestionRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GenerateRunID generates a new run ID with run_ prefix
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", uuid.New().String())
}
