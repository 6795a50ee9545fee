package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testCustomers() []model.Customer {
	return []model.Customer{
		{
			CustomerID:   "CU001",
			FirstName:    "Ana",
			LastName:     "Martins",
			BirthDate:    time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC),
			Gender:       "F",
			City:         "Lisbon",
			Country:      "PT",
			Profession:   "Engineer",
			AnnualIncome: 62000,
		},
		{
			CustomerID:   "CU002",
			FirstName:    "Jonas",
			LastName:     "Weber",
			BirthDate:    time.Date(1975, 11, 2, 0, 0, 0, 0, time.UTC),
			Gender:       "M",
			City:         "Zurich",
			Country:      "CH",
			Profession:   "Manager",
			AnnualIncome: 95000,
		},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveCustomersUpsert(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomers(ctx, testCustomers()))

	// Re-ingest with a changed income; count must stay stable.
	updated := testCustomers()
	updated[0].AnnualIncome = 70000
	require.NoError(t, store.SaveCustomers(ctx, updated))

	all, err := store.GetAllCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := store.GetCustomer(ctx, "CU001")
	require.NoError(t, err)
	assert.Equal(t, 70000.0, got.AnnualIncome)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, 1990, got.BirthDate.Year())
}

func TestSaveCustomersValidation(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		customers []model.Customer
	}{
		{name: "nil slice", customers: nil},
		{name: "empty slice", customers: []model.Customer{}},
		{name: "missing ID", customers: []model.Customer{{FirstName: "No"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveCustomers(ctx, tt.customers))
		})
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetCustomer(context.Background(), "CU999")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionsKeepRawDate(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	txns := []model.Transaction{
		{CustomerID: "CU001", DateRaw: "2025-04-01", Amount: -42.50, Currency: "EUR", Category: "groceries", Channel: "pos"},
		{CustomerID: "CU001", DateRaw: "not-a-date", Amount: 1200, Currency: "EUR", Category: "salary", Channel: "transfer"},
		{CustomerID: "CU002", DateRaw: "2025-04-03", Amount: -9.99, Currency: "CHF", Category: "subscriptions", Channel: "online"},
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	got, err := store.GetTransactionsByCustomer(ctx, "CU001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2025-04-01", got[0].DateRaw)
	assert.False(t, got[0].Date.IsZero())
	// Unparseable dates keep the raw string and a zero time.
	assert.Equal(t, "not-a-date", got[1].DateRaw)
	assert.True(t, got[1].Date.IsZero())

	all, err := store.GetAllTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveHoldingsReplacesPerCustomer(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first := []model.Holding{
		{CustomerID: "CU001", ProductCode: "CADB439", ProductName: "Debit Card", Category: "cards", Balance: 0},
		{CustomerID: "CU001", ProductCode: "SAVE100", ProductName: "Savings", Category: "savings", Balance: 5000},
	}
	require.NoError(t, store.SaveHoldings(ctx, first))

	// Re-ingestion swaps the customer's holdings wholesale.
	second := []model.Holding{
		{CustomerID: "CU001", ProductCode: "CADB439", ProductName: "Debit Card", Category: "cards", Balance: 12},
	}
	require.NoError(t, store.SaveHoldings(ctx, second))

	got, err := store.GetHoldingsByCustomer(ctx, "CU001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.0, got[0].Balance)

	owned, err := store.GetOwnedProducts(ctx, "CU001")
	require.NoError(t, err)
	assert.True(t, owned["CADB439"])
	assert.False(t, owned["SAVE100"])
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Positive(t, run.ID)

	require.NoError(t, store.CompleteRun(ctx, run.ID, `{"clusters":5}`))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, `{"clusters":5}`, got.Notes)

	// Runs finish exactly once.
	err = store.FailRun(ctx, run.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidRunTransition)
}

func TestFailRun(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, store.FailRun(ctx, run.ID, "no customer data found"))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "no customer data found", got.Notes)
}

func TestGetLatestRunFiltersByStatus(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first, err := store.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, first.ID, ""))

	second, err := store.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, store.FailRun(ctx, second.ID, "boom"))

	latest, err := store.GetLatestRun(ctx, model.RunStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	any, err := store.GetLatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, any.ID)

	_, err = store.GetLatestRun(ctx, model.RunStatusRunning)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := store.CreateRun(ctx)
		require.NoError(t, err)
		require.NoError(t, store.CompleteRun(ctx, run.ID, ""))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestClusterAssignments(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)

	assignments := []model.ClusterAssignment{
		{RunID: run.ID, CustomerID: "CU001", ClusterID: 0, DistanceToCentroid: 0.8},
		{RunID: run.ID, CustomerID: "CU002", ClusterID: 1, DistanceToCentroid: 1.3},
		{RunID: run.ID, CustomerID: "CU003", ClusterID: 1, DistanceToCentroid: 0.4},
	}
	require.NoError(t, store.SaveClusterAssignments(ctx, assignments))

	got, err := store.GetClusterAssignments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	sizes, err := store.GetClusterSizes(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 1: 2}, sizes)

	// A second save for the same (run, customer) replaces the assignment.
	require.NoError(t, store.SaveClusterAssignments(ctx, []model.ClusterAssignment{
		{RunID: run.ID, CustomerID: "CU001", ClusterID: 2, DistanceToCentroid: 0.1},
	}))
	got, err = store.GetClusterAssignments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func seedRecommendation(t *testing.T, store *SQLiteStorage, ctx context.Context) int64 {
	t.Helper()

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)

	recs := []model.Recommendation{{
		RunID:           run.ID,
		CustomerID:      "CU001",
		ProductCode:     "PREMIUM_INVESTMENT",
		AcceptanceProb:  0.85,
		ExpectedRevenue: 5000,
	}}
	expls := []model.Explanation{{
		Narrative:      "High income and balance suggest readiness for investment products.",
		KeyFactorsJSON: `{"annual_income":95000}`,
		ModelName:      "batch_rules/v1",
	}}
	require.NoError(t, store.SaveRecommendations(ctx, recs, expls))

	saved, err := store.ListRecommendations(ctx, service.RecommendationFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	return saved[0].ID
}

func TestSaveRecommendationsWithExplanations(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	id := seedRecommendation(t, store, ctx)

	rec, err := store.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, 0.85, rec.AcceptanceProb)

	expl, err := store.GetExplanation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "batch_rules/v1", expl.ModelName)
	assert.Contains(t, expl.Narrative, "investment")
}

func TestSaveRecommendationsRejectsMismatchedExplanations(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	recs := []model.Recommendation{{RunID: 1, CustomerID: "CU001", ProductCode: "X", AcceptanceProb: 0.5}}
	err := store.SaveRecommendations(ctx, recs, nil)
	assert.Error(t, err)
}

func TestEditRecommendation(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	id := seedRecommendation(t, store, ctx)

	require.NoError(t, store.EditRecommendation(ctx, id, "Adjusted pitch", "tone", "advisor7"))

	rec, err := store.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, rec.Status)
	assert.Equal(t, "Adjusted pitch", rec.EditedNarrative)
	assert.Equal(t, "advisor7", rec.EditedBy)
	require.NotNil(t, rec.EditedAt)

	// Re-editing a reviewed recommendation is allowed.
	require.NoError(t, store.EditRecommendation(ctx, id, "Second pass", "clarity", "advisor7"))

	// The original explanation is untouched.
	expl, err := store.GetExplanation(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, expl.Narrative, "investment")
}

func TestSendRecommendationIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	id := seedRecommendation(t, store, ctx)

	require.NoError(t, store.SendRecommendation(ctx, id, "advisor7"))

	rec, err := store.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, rec.Status)
	require.NotNil(t, rec.SentAt)
	firstSentAt := *rec.SentAt

	// A retry is a no-op and keeps the original timestamp.
	require.NoError(t, store.SendRecommendation(ctx, id, "advisor8"))
	rec, err = store.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "advisor7", rec.SentBy)
	assert.Equal(t, firstSentAt, *rec.SentAt)

	// Sent is terminal for every other action.
	assert.ErrorIs(t, store.EditRecommendation(ctx, id, "x", "y", "z"), ErrInvalidStatusChange)
	assert.ErrorIs(t, store.DismissRecommendation(ctx, id, "late", "advisor7"), ErrInvalidStatusChange)
}

func TestDismissRecommendation(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	id := seedRecommendation(t, store, ctx)

	require.NoError(t, store.DismissRecommendation(ctx, id, "customer declined", "advisor7"))

	rec, err := store.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDismissed, rec.Status)
	assert.Equal(t, "customer declined", rec.DismissedReason)
	require.NotNil(t, rec.DismissedAt)

	assert.ErrorIs(t, store.SendRecommendation(ctx, id, "advisor7"), ErrInvalidStatusChange)
}

func TestListRecommendationsFilters(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)

	recs := []model.Recommendation{
		{RunID: run.ID, CustomerID: "CU001", ProductCode: "A", AcceptanceProb: 0.6, ExpectedRevenue: 200},
		{RunID: run.ID, CustomerID: "CU001", ProductCode: "B", AcceptanceProb: 0.7, ExpectedRevenue: 800},
		{RunID: run.ID, CustomerID: "CU002", ProductCode: "C", AcceptanceProb: 0.8, ExpectedRevenue: 5000},
	}
	expls := make([]model.Explanation, len(recs))
	require.NoError(t, store.SaveRecommendations(ctx, recs, expls))

	byCustomer, err := store.ListRecommendations(ctx, service.RecommendationFilter{CustomerID: "CU001"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	// Ordered by acceptance probability descending.
	assert.Equal(t, "B", byCustomer[0].ProductCode)

	count, err := store.CountRecommendations(ctx, service.RecommendationFilter{RunID: run.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	limited, err := store.ListRecommendations(ctx, service.RecommendationFilter{RunID: run.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "B", limited[0].ProductCode)

	pending, err := store.CountRecommendations(ctx, service.RecommendationFilter{Status: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 3, pending)
}
