package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellbank/segmint/internal/cluster"
	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
	"github.com/wellbank/segmint/internal/storage"
)

func setupPipeline(t *testing.T) (*Pipeline, *storage.SQLiteStorage, string) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	modelsDir := t.TempDir()
	return New(store, modelsDir), store, modelsDir
}

// seedMixedPopulation creates customers spanning the scoring rules: an
// affluent investor, a young earner and a low-activity customer.
func seedMixedPopulation(t *testing.T, store *storage.SQLiteStorage, n int) {
	t.Helper()
	ctx := context.Background()

	customers := make([]model.Customer, 0, n)
	var transactions []model.Transaction
	var holdings []model.Holding

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("CU%04d", i)
		switch i % 3 {
		case 0:
			customers = append(customers, model.Customer{
				CustomerID: id, AnnualIncome: 90000,
				BirthDate: time.Date(1975, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			holdings = append(holdings, model.Holding{
				CustomerID: id, ProductCode: "SINV263", Category: "investments", Balance: 150000,
			})
			transactions = append(transactions, model.Transaction{
				CustomerID: id, DateRaw: "2025-10-01", Amount: -500, Category: "travel",
			})
		case 1:
			customers = append(customers, model.Customer{
				CustomerID: id, AnnualIncome: 40000,
				BirthDate: time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			transactions = append(transactions, model.Transaction{
				CustomerID: id, DateRaw: "2025-10-02", Amount: -50, Category: "groceries",
			})
		default:
			customers = append(customers, model.Customer{
				CustomerID: id, AnnualIncome: 20000,
				BirthDate: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			transactions = append(transactions, model.Transaction{
				CustomerID: id, DateRaw: "2025-10-03", Amount: -10, Category: "groceries",
			})
		}
	}

	require.NoError(t, store.SaveCustomers(ctx, customers))
	require.NoError(t, store.SaveTransactions(ctx, transactions))
	require.NoError(t, store.SaveHoldings(ctx, holdings))
}

func TestRunAggregateVariant(t *testing.T) {
	p, store, _ := setupPipeline(t)
	seedMixedPopulation(t, store, 30)
	ctx := context.Background()

	summary, err := p.Run(ctx, cluster.VariantAggregate, 0)
	require.NoError(t, err)

	assert.Equal(t, cluster.VariantAggregate, summary.Variant)
	assert.Equal(t, cluster.DefaultAggregateClusters, summary.Clusters)
	assert.Equal(t, 30, summary.Customers)
	assert.Positive(t, summary.Recommendations)

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, run.Status)
	assert.Contains(t, run.Notes, `"variant":"aggregate"`)
	assert.Contains(t, run.Notes, `"n_clusters":5`)

	assignments, err := store.GetClusterAssignments(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Len(t, assignments, 30)
	for _, a := range assignments {
		assert.GreaterOrEqual(t, a.ClusterID, 0)
		assert.Less(t, a.ClusterID, summary.Clusters)
		assert.GreaterOrEqual(t, a.DistanceToCentroid, 0.1)
		assert.Less(t, a.DistanceToCentroid, 2.0)
	}

	// Affluent customers get the premium threshold pair.
	recs, err := store.ListRecommendations(ctx, service.RecommendationFilter{CustomerID: "CU0000"})
	require.NoError(t, err)
	codes := make(map[string]bool)
	for _, r := range recs {
		codes[r.ProductCode] = true
		assert.Equal(t, model.StatusPending, r.Status)
	}
	assert.True(t, codes["PREMIUM_INVESTMENT"])
	assert.True(t, codes["WEALTH_MANAGEMENT"])
}

func TestRunCategoryVariantPersistsArtifact(t *testing.T) {
	p, store, modelsDir := setupPipeline(t)
	seedMixedPopulation(t, store, 30)
	ctx := context.Background()

	summary, err := p.Run(ctx, cluster.VariantCategory, 0)
	require.NoError(t, err)
	assert.Equal(t, cluster.DefaultCategoryClusters, summary.Clusters)

	m, err := cluster.LoadModel(modelsDir)
	require.NoError(t, err)
	assert.Len(t, m.Centroids, summary.Clusters)
	assert.NotEmpty(t, m.Columns)
	assert.Equal(t, summary.Metrics.Inertia, m.Metrics.Inertia)

	// Every recommendation carries an explanation from the persona path.
	recs, err := store.ListRecommendations(ctx, service.RecommendationFilter{RunID: summary.RunID, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		expl, explErr := store.GetExplanation(ctx, r.ID)
		require.NoError(t, explErr)
		assert.Equal(t, "batch_rules/v1", expl.ModelName)
	}
}

func TestRunFailsWithoutCustomers(t *testing.T) {
	p, store, _ := setupPipeline(t)
	ctx := context.Background()

	_, err := p.Run(ctx, cluster.VariantAggregate, 0)
	require.ErrorIs(t, err, common.ErrNoCustomers)

	// The ledger records the failure; there is no successful run.
	run, err := store.GetLatestRun(ctx, model.RunStatusFailed)
	require.NoError(t, err)
	assert.Contains(t, run.Notes, "no customer data")

	_, err = store.GetLatestRun(ctx, model.RunStatusSuccess)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunRespectsCancellation(t *testing.T) {
	p, store, _ := setupPipeline(t)
	seedMixedPopulation(t, store, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, cluster.VariantAggregate, 0)
	assert.Error(t, err)
}

func TestRunDeterministicAssignments(t *testing.T) {
	p, store, _ := setupPipeline(t)
	seedMixedPopulation(t, store, 30)
	ctx := context.Background()

	first, err := p.Run(ctx, cluster.VariantCategory, 0)
	require.NoError(t, err)
	second, err := p.Run(ctx, cluster.VariantCategory, 0)
	require.NoError(t, err)

	a1, err := store.GetClusterAssignments(ctx, first.RunID)
	require.NoError(t, err)
	a2, err := store.GetClusterAssignments(ctx, second.RunID)
	require.NoError(t, err)

	byCustomer := make(map[string]int, len(a1))
	for _, a := range a1 {
		byCustomer[a.CustomerID] = a.ClusterID
	}
	for _, a := range a2 {
		assert.Equal(t, byCustomer[a.CustomerID], a.ClusterID)
	}
}
