// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/wellbank/segmint/internal/model"
)

// RecommendationFilter defines filtering options for recommendation queries.
// Zero values mean "no filter"; Limit 0 means no limit.
type RecommendationFilter struct {
	CustomerID string
	Status     model.RecommendationStatus
	RunID      int64
	Limit      int
	Offset     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Reference data
	SaveCustomers(ctx context.Context, customers []model.Customer) error
	GetCustomer(ctx context.Context, customerID string) (*model.Customer, error)
	GetAllCustomers(ctx context.Context) ([]model.Customer, error)
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetAllTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionsByCustomer(ctx context.Context, customerID string) ([]model.Transaction, error)
	SaveHoldings(ctx context.Context, holdings []model.Holding) error
	GetAllHoldings(ctx context.Context) ([]model.Holding, error)
	GetHoldingsByCustomer(ctx context.Context, customerID string) ([]model.Holding, error)
	GetOwnedProducts(ctx context.Context, customerID string) (map[string]bool, error)

	// Run ledger
	CreateRun(ctx context.Context) (*model.BatchRun, error)
	CompleteRun(ctx context.Context, runID int64, notes string) error
	FailRun(ctx context.Context, runID int64, reason string) error
	GetRun(ctx context.Context, runID int64) (*model.BatchRun, error)
	GetLatestRun(ctx context.Context, status model.RunStatus) (*model.BatchRun, error)
	ListRuns(ctx context.Context, limit int) ([]model.BatchRun, error)

	// Cluster assignments
	SaveClusterAssignments(ctx context.Context, assignments []model.ClusterAssignment) error
	GetClusterAssignments(ctx context.Context, runID int64) ([]model.ClusterAssignment, error)
	GetClusterSizes(ctx context.Context, runID int64) (map[int]int, error)

	// Recommendation store
	SaveRecommendations(ctx context.Context, recs []model.Recommendation, explanations []model.Explanation) error
	GetRecommendation(ctx context.Context, id int64) (*model.Recommendation, error)
	GetExplanation(ctx context.Context, recommendationID int64) (*model.Explanation, error)
	ListRecommendations(ctx context.Context, filter RecommendationFilter) ([]model.Recommendation, error)
	CountRecommendations(ctx context.Context, filter RecommendationFilter) (int, error)
	EditRecommendation(ctx context.Context, id int64, narrative, reason, editedBy string) error
	SendRecommendation(ctx context.Context, id int64, sentBy string) error
	DismissRecommendation(ctx context.Context, id int64, reason, dismissedBy string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
