package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
)

// SaveRecommendations inserts recommendations with their 1:1 explanations in
// a single transaction. Rows start in the pending state; explanations are
// write-once.
func (s *SQLiteStorage) SaveRecommendations(ctx context.Context, recs []model.Recommendation, explanations []model.Explanation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecommendations(recs, explanations); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (run_id, customer_id, product_code, acceptance_prob, expected_revenue, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recommendation insert: %w", err)
	}
	defer func() { _ = recStmt.Close() }()

	explStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendation_explanations (recommendation_id, narrative, key_factors_json, model_name)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare explanation insert: %w", err)
	}
	defer func() { _ = explStmt.Close() }()

	for i, r := range recs {
		status := r.Status
		if status == "" {
			status = model.StatusPending
		}
		result, execErr := recStmt.ExecContext(ctx,
			r.RunID, r.CustomerID, r.ProductCode, r.AcceptanceProb, r.ExpectedRevenue, status)
		if execErr != nil {
			return fmt.Errorf("failed to save recommendation for %s: %w", r.CustomerID, execErr)
		}

		recID, idErr := result.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("failed to get recommendation ID: %w", idErr)
		}

		e := explanations[i]
		if _, execErr = explStmt.ExecContext(ctx,
			recID, e.Narrative, e.KeyFactorsJSON, e.ModelName); execErr != nil {
			return fmt.Errorf("failed to save explanation for recommendation %d: %w", recID, execErr)
		}
	}

	return tx.Commit()
}

const recommendationColumns = `
	id, run_id, customer_id, product_code, acceptance_prob, expected_revenue, status,
	edited_narrative, edited_reason, edited_by, edited_at,
	sent_at, sent_by, dismissed_at, dismissed_by, dismissed_reason`

// GetRecommendation retrieves a recommendation by ID.
func (s *SQLiteStorage) GetRecommendation(ctx context.Context, id int64) (*model.Recommendation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = ?`, id)

	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return rec, nil
}

// GetExplanation retrieves the explanation paired with a recommendation.
func (s *SQLiteStorage) GetExplanation(ctx context.Context, recommendationID int64) (*model.Explanation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var e model.Explanation
	var narrative, keyFactors, modelName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT recommendation_id, narrative, key_factors_json, model_name
		FROM recommendation_explanations
		WHERE recommendation_id = ?
	`, recommendationID).Scan(&e.RecommendationID, &narrative, &keyFactors, &modelName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("explanation for recommendation %d: %w", recommendationID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get explanation: %w", err)
	}

	e.Narrative = narrative.String
	e.KeyFactorsJSON = keyFactors.String
	e.ModelName = modelName.String
	return &e, nil
}

// buildFilterClause renders a RecommendationFilter into a WHERE clause.
func buildFilterClause(filter service.RecommendationFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.RunID > 0 {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.CustomerID != "" {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListRecommendations returns recommendations matching the filter, ordered
// by acceptance probability descending, ties by expected revenue descending.
func (s *SQLiteStorage) ListRecommendations(ctx context.Context, filter service.RecommendationFilter) ([]model.Recommendation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := buildFilterClause(filter)
	query := `SELECT ` + recommendationColumns + ` FROM recommendations` + where +
		` ORDER BY acceptance_prob DESC, expected_revenue DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []model.Recommendation
	for rows.Next() {
		rec, scanErr := scanRecommendation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", scanErr)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// CountRecommendations counts recommendations matching the filter.
func (s *SQLiteStorage) CountRecommendations(ctx context.Context, filter service.RecommendationFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	where, args := buildFilterClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count, nil
}

// EditRecommendation stores advisor overrides and moves the row to reviewed.
// The original narrative in recommendation_explanations is never touched.
func (s *SQLiteStorage) EditRecommendation(ctx context.Context, id int64, narrative, reason, editedBy string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rec, err := s.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Status.CanTransition(model.StatusReviewed) {
		return fmt.Errorf("recommendation %d is %s: %w", id, rec.Status, ErrInvalidStatusChange)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET status = ?, edited_narrative = ?, edited_reason = ?, edited_by = ?, edited_at = ?
		WHERE id = ?
	`, model.StatusReviewed, narrative, reason, editedBy,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to edit recommendation %d: %w", id, err)
	}
	return nil
}

// SendRecommendation marks a recommendation as sent. Sending an already-sent
// recommendation is a no-op so advisors can safely retry.
func (s *SQLiteStorage) SendRecommendation(ctx context.Context, id int64, sentBy string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rec, err := s.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == model.StatusSent {
		return nil
	}
	if !rec.Status.CanTransition(model.StatusSent) {
		return fmt.Errorf("recommendation %d is %s: %w", id, rec.Status, ErrInvalidStatusChange)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET status = ?, sent_at = ?, sent_by = ?
		WHERE id = ?
	`, model.StatusSent, time.Now().UTC().Format(time.RFC3339), sentBy, id)
	if err != nil {
		return fmt.Errorf("failed to send recommendation %d: %w", id, err)
	}
	return nil
}

// DismissRecommendation marks a recommendation as dismissed with a reason.
func (s *SQLiteStorage) DismissRecommendation(ctx context.Context, id int64, reason, dismissedBy string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rec, err := s.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Status.CanTransition(model.StatusDismissed) {
		return fmt.Errorf("recommendation %d is %s: %w", id, rec.Status, ErrInvalidStatusChange)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET status = ?, dismissed_at = ?, dismissed_by = ?, dismissed_reason = ?
		WHERE id = ?
	`, model.StatusDismissed, time.Now().UTC().Format(time.RFC3339), dismissedBy, reason, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss recommendation %d: %w", id, err)
	}
	return nil
}

func scanRecommendation(row rowScanner) (*model.Recommendation, error) {
	var r model.Recommendation
	var editedNarrative, editedReason, editedBy sql.NullString
	var editedAt, sentAt, sentBy, dismissedAt, dismissedBy, dismissedReason sql.NullString

	err := row.Scan(&r.ID, &r.RunID, &r.CustomerID, &r.ProductCode,
		&r.AcceptanceProb, &r.ExpectedRevenue, &r.Status,
		&editedNarrative, &editedReason, &editedBy, &editedAt,
		&sentAt, &sentBy, &dismissedAt, &dismissedBy, &dismissedReason)
	if err != nil {
		return nil, err
	}

	r.EditedNarrative = editedNarrative.String
	r.EditedReason = editedReason.String
	r.EditedBy = editedBy.String
	r.SentBy = sentBy.String
	r.DismissedBy = dismissedBy.String
	r.DismissedReason = dismissedReason.String
	r.EditedAt = parseTimestamp(editedAt)
	r.SentAt = parseTimestamp(sentAt)
	r.DismissedAt = parseTimestamp(dismissedAt)
	return &r, nil
}

func parseTimestamp(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s.String); err == nil {
		return &t
	}
	return nil
}
