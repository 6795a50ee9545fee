package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
)

// CreateRun inserts a new batch run in the running state.
func (s *SQLiteStorage) CreateRun(ctx context.Context) (*model.BatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_runs (started_at, status) VALUES (?, ?)`,
		now.Format(time.RFC3339), model.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get run ID: %w", err)
	}

	return &model.BatchRun{
		ID:        id,
		StartedAt: now,
		Status:    model.RunStatusRunning,
	}, nil
}

// CompleteRun marks a running run as successful and records summary notes.
func (s *SQLiteStorage) CompleteRun(ctx context.Context, runID int64, notes string) error {
	return s.finishRun(ctx, runID, model.RunStatusSuccess, notes)
}

// FailRun marks a running run as failed and records the reason.
func (s *SQLiteStorage) FailRun(ctx context.Context, runID int64, reason string) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, reason)
}

// finishRun transitions a run out of the running state exactly once.
func (s *SQLiteStorage) finishRun(ctx context.Context, runID int64, status model.RunStatus, notes string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE batch_runs
		SET status = ?, finished_at = ?, notes = ?
		WHERE id = ? AND status = ?
	`, status, time.Now().UTC().Format(time.RFC3339), notes, runID, model.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// Either the run doesn't exist or it already finished.
		var count int
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM batch_runs WHERE id = ?`, runID).Scan(&count); scanErr != nil {
			return fmt.Errorf("failed to check run %d: %w", runID, scanErr)
		}
		if count == 0 {
			return fmt.Errorf("run %d: %w", runID, common.ErrNotFound)
		}
		return fmt.Errorf("run %d: %w", runID, ErrInvalidRunTransition)
	}
	return nil
}

// GetRun retrieves a batch run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID int64) (*model.BatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, notes
		FROM batch_runs
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetLatestRun returns the most recent run with the given status, or the most
// recent run of any status when status is empty.
func (s *SQLiteStorage) GetLatestRun(ctx context.Context, status model.RunStatus) (*model.BatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, started_at, finished_at, status, notes FROM batch_runs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest-first, up to limit (0 means all).
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.BatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, started_at, finished_at, status, notes FROM batch_runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.BatchRun
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*model.BatchRun, error) {
	var run model.BatchRun
	var startedAt string
	var finishedAt, notes sql.NullString

	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Status, &notes); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	run.Notes = notes.String
	return &run, nil
}
