package model

import "time"

// RecommendationStatus tracks the advisor lifecycle of a recommendation.
type RecommendationStatus string

// Valid recommendation statuses.
const (
	StatusPending   RecommendationStatus = "pending"
	StatusReviewed  RecommendationStatus = "reviewed"
	StatusSent      RecommendationStatus = "sent"
	StatusDismissed RecommendationStatus = "dismissed"
)

// CanTransition reports whether a recommendation may move from its current
// status to the target. Transitions are one-way except re-review:
// pending -> reviewed -> sent|dismissed, or pending -> sent|dismissed directly.
func (s RecommendationStatus) CanTransition(to RecommendationStatus) bool {
	switch to {
	case StatusReviewed:
		return s == StatusPending || s == StatusReviewed
	case StatusSent, StatusDismissed:
		return s == StatusPending || s == StatusReviewed
	default:
		return false
	}
}

// Recommendation is created by the batch pipeline and mutated only by
// advisor actions. Rows are never deleted.
type Recommendation struct {
	EditedAt        *time.Time
	SentAt          *time.Time
	DismissedAt     *time.Time
	ID              int64
	RunID           int64
	CustomerID      string
	ProductCode     string
	Status          RecommendationStatus
	EditedNarrative string
	EditedReason    string
	EditedBy        string
	SentBy          string
	DismissedBy     string
	DismissedReason string
	AcceptanceProb  float64
	ExpectedRevenue float64
}

// Explanation is the write-once 1:1 companion to a Recommendation.
type Explanation struct {
	RecommendationID int64
	Narrative        string
	KeyFactorsJSON   string
	ModelName        string
}
