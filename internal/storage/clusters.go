package storage

import (
	"context"
	"fmt"

	"github.com/wellbank/segmint/internal/model"
)

// SaveClusterAssignments persists one batch of assignments in a single
// transaction. The pipeline calls this per batch, so a run's assignments
// may span several transactions.
func (s *SQLiteStorage) SaveClusterAssignments(ctx context.Context, assignments []model.ClusterAssignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return fmt.Errorf("%w: assignments", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customer_clusters (run_id, customer_id, cluster_id, distance_to_centroid)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, customer_id) DO UPDATE SET
			cluster_id = excluded.cluster_id,
			distance_to_centroid = excluded.distance_to_centroid
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range assignments {
		_, err = stmt.ExecContext(ctx, a.RunID, a.CustomerID, a.ClusterID, a.DistanceToCentroid)
		if err != nil {
			return fmt.Errorf("failed to save assignment for %s: %w", a.CustomerID, err)
		}
	}

	return tx.Commit()
}

// GetClusterAssignments returns all assignments for a run.
func (s *SQLiteStorage) GetClusterAssignments(ctx context.Context, runID int64) ([]model.ClusterAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, customer_id, cluster_id, distance_to_centroid
		FROM customer_clusters
		WHERE run_id = ?
		ORDER BY cluster_id, customer_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assignments []model.ClusterAssignment
	for rows.Next() {
		var a model.ClusterAssignment
		if scanErr := rows.Scan(&a.RunID, &a.CustomerID, &a.ClusterID, &a.DistanceToCentroid); scanErr != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", scanErr)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// GetClusterSizes returns cluster_id -> customer count for a run.
func (s *SQLiteStorage) GetClusterSizes(ctx context.Context, runID int64) (map[int]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_id, COUNT(*)
		FROM customer_clusters
		WHERE run_id = ?
		GROUP BY cluster_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster sizes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sizes := make(map[int]int)
	for rows.Next() {
		var clusterID, count int
		if scanErr := rows.Scan(&clusterID, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan cluster size: %w", scanErr)
		}
		sizes[clusterID] = count
	}
	return sizes, rows.Err()
}
