package features

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/storage"
)

func setupBuilder(t *testing.T) (*Builder, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	b := NewBuilder(store)
	b.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return b, store
}

func seedPopulation(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveCustomers(ctx, []model.Customer{
		{CustomerID: "CU001", BirthDate: time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), AnnualIncome: 45000, Gender: "F", SegmentHint: "retail"},
		{CustomerID: "CU002", BirthDate: time.Date(1980, 6, 1, 0, 0, 0, 0, time.UTC), AnnualIncome: 90000, Gender: "M", SegmentHint: "affluent"},
	}))
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		{CustomerID: "CU001", DateRaw: "2025-12-01", Amount: -120, Category: "Groceries"},
		{CustomerID: "CU001", DateRaw: "2025-12-15", Amount: -80, Category: "groceries"},
		{CustomerID: "CU001", DateRaw: "2025-12-20", Amount: 2500, Category: "Salary"},
	}))
	require.NoError(t, store.SaveHoldings(ctx, []model.Holding{
		{CustomerID: "CU002", ProductCode: "SINV263", Category: "investments", Balance: 150000},
		{CustomerID: "CU002", ProductCode: "CADB439", Category: "cards", Balance: 500},
	}))
}

func TestBuildAggregateSchema(t *testing.T) {
	b, store := setupBuilder(t)
	seedPopulation(t, store)

	ds, err := b.BuildAggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"age", "annual_income",
		"total_balance", "avg_balance", "product_count", "holding_category_diversity",
		"total_spent", "avg_transaction", "std_transaction", "transaction_count",
		"tx_category_diversity", "days_since_last_tx",
	}, ds.Table.Columns)
	require.Len(t, ds.Table.Rows, 2)
	assert.Equal(t, []string{"CU001", "CU002"}, ds.Table.CustomerIDs)

	row := rowFor(t, ds.Table, "CU001")
	assert.InDelta(t, 30, row["age"], 0.1)
	assert.Equal(t, 45000.0, row["annual_income"])
	assert.Equal(t, 200.0, row["total_spent"])
	assert.Equal(t, 3.0, row["transaction_count"])
	// "Groceries" and "groceries" normalize to one category; salary is a second.
	assert.Equal(t, 2.0, row["tx_category_diversity"])
	assert.InDelta(t, 12, row["days_since_last_tx"], 0.5)

	row2 := rowFor(t, ds.Table, "CU002")
	assert.Equal(t, 150500.0, row2["total_balance"])
	assert.Equal(t, 75250.0, row2["avg_balance"])
	assert.Equal(t, 2.0, row2["product_count"])
	assert.Equal(t, 0.0, row2["total_spent"])
}

func TestBuildAggregateProfiles(t *testing.T) {
	b, store := setupBuilder(t)
	seedPopulation(t, store)

	ds, err := b.BuildAggregate(context.Background())
	require.NoError(t, err)

	p := ds.Profiles["CU002"]
	assert.Equal(t, 90000.0, p.AnnualIncome)
	assert.Equal(t, 150500.0, p.TotalBalance)
	assert.Equal(t, 0, p.TxCount)
}

func TestBuildCategoryPivots(t *testing.T) {
	b, store := setupBuilder(t)
	seedPopulation(t, store)

	ds, err := b.BuildCategory(context.Background())
	require.NoError(t, err)

	// Base columns come first, pivots sorted after.
	assert.Equal(t, "total_spent", ds.Table.Columns[0])
	assert.Contains(t, ds.Table.Columns, "tx_cat_total_groceries")
	assert.Contains(t, ds.Table.Columns, "tx_cat_count_salary")
	assert.Contains(t, ds.Table.Columns, "holding_cat_balance_investments")

	row := rowFor(t, ds.Table, "CU001")
	assert.Equal(t, 200.0, row["tx_cat_total_groceries"])
	assert.Equal(t, 2.0, row["tx_cat_count_groceries"])
	assert.Equal(t, 2500.0, row["tx_cat_total_salary"])
	assert.Equal(t, 2500.0, row["transaction_max"])
	assert.Equal(t, -120.0, row["transaction_min"])

	// Customers without a category simply get zero in its pivot column.
	row2 := rowFor(t, ds.Table, "CU002")
	assert.Equal(t, 0.0, row2["tx_cat_total_groceries"])
	assert.Equal(t, 150000.0, row2["holding_cat_balance_investments"])
}

func TestBuildNoCustomers(t *testing.T) {
	b, _ := setupBuilder(t)

	_, err := b.BuildAggregate(context.Background())
	assert.ErrorIs(t, err, common.ErrNoCustomers)

	_, err = b.BuildCategory(context.Background())
	assert.ErrorIs(t, err, common.ErrNoCustomers)
}

func TestDemographicFallback(t *testing.T) {
	b, store := setupBuilder(t)
	ctx := context.Background()

	// Customers only, no transactions or holdings anywhere.
	require.NoError(t, store.SaveCustomers(ctx, []model.Customer{
		{CustomerID: "CU001", BirthDate: time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), AnnualIncome: 45000, Gender: "F", SegmentHint: "retail"},
		{CustomerID: "CU002", BirthDate: time.Date(1980, 6, 1, 0, 0, 0, 0, time.UTC), AnnualIncome: 90000, Gender: "M", SegmentHint: "affluent"},
	}))

	ds, err := b.BuildAggregate(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"age", "annual_income",
		"gender_f", "gender_m",
		"segment_affluent", "segment_retail",
	}, ds.Table.Columns)

	row := rowFor(t, ds.Table, "CU001")
	assert.Equal(t, 1.0, row["gender_f"])
	assert.Equal(t, 0.0, row["gender_m"])
	assert.Equal(t, 1.0, row["segment_retail"])
}

func TestCustomerVector(t *testing.T) {
	b, store := setupBuilder(t)
	seedPopulation(t, store)
	ctx := context.Background()

	vec, profile, err := b.CustomerVector(ctx, "CU001")
	require.NoError(t, err)
	assert.Equal(t, 200.0, vec["total_spent"])
	assert.Equal(t, 2.0, vec["tx_cat_count_groceries"])
	assert.Equal(t, 3, profile.TxCount)

	_, _, err = b.CustomerVector(ctx, "CU404")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func rowFor(t *testing.T, table *Table, customerID string) map[string]float64 {
	t.Helper()
	for i, id := range table.CustomerIDs {
		if id == customerID {
			row := make(map[string]float64, len(table.Columns))
			for j, col := range table.Columns {
				row[col] = table.Rows[i][j]
			}
			return row
		}
	}
	t.Fatalf("customer %s not in table", customerID)
	return nil
}
