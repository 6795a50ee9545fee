package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellbank/segmint/internal/storage"
)

func setupIngestor(t *testing.T) (*Ingestor, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	return New(store), store
}

func TestParseDatasetType(t *testing.T) {
	typ, err := ParseDatasetType(" Customers ")
	require.NoError(t, err)
	assert.Equal(t, DatasetCustomers, typ)

	_, err = ParseDatasetType("accounts")
	assert.Error(t, err)
}

func TestIngestCustomersWithAliasedHeaders(t *testing.T) {
	ing, store := setupIngestor(t)
	ctx := context.Background()

	// Aliased headers plus an unmapped column that must be dropped.
	csvData := strings.Join([]string{
		"Client_ID,Firstname,Surname,DOB,Sex,City,Occupation,Income,internal_flag",
		"CU001,Ana,Martins,1990-03-15,F,Lisbon,Engineer,62000,xyz",
		"CU002,Jonas,Weber,02/11/1975,M,Zurich,Manager,\"95,000\",abc",
		",Missing,ID,1990-01-01,F,Nowhere,None,0,skip-me",
	}, "\n")

	report, err := ing.Ingest(ctx, DatasetCustomers, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 1, report.Skipped)

	c, err := store.GetCustomer(ctx, "CU001")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.FirstName)
	assert.Equal(t, "Martins", c.LastName)
	assert.Equal(t, 62000.0, c.AnnualIncome)
	assert.Equal(t, 1990, c.BirthDate.Year())

	// Thousands separator tolerated.
	c2, err := store.GetCustomer(ctx, "CU002")
	require.NoError(t, err)
	assert.Equal(t, 95000.0, c2.AnnualIncome)
}

func TestIngestTransactionsDateFailsOpen(t *testing.T) {
	ing, store := setupIngestor(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"customer_id,booking_date,amount,currency,category",
		"CU001,2025-04-01,-42.50,EUR,groceries",
		"CU001,sometime in april,-10.00,EUR,misc",
	}, "\n")

	report, err := ing.Ingest(ctx, DatasetTransactions, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)

	txns, err := store.GetTransactionsByCustomer(ctx, "CU001")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.False(t, txns[0].Date.IsZero())
	assert.True(t, txns[1].Date.IsZero())
	assert.Equal(t, "sometime in april", txns[1].DateRaw)
	assert.Equal(t, -10.0, txns[1].Amount)
}

func TestIngestHoldings(t *testing.T) {
	ing, store := setupIngestor(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"customer_id,product_id,product,product_category,balance,open_date",
		"CU001,SINV263,Stock Investment Account,investments,150000,2020-06-01",
		"CU001,,No Code,cards,10,2021-01-01",
	}, "\n")

	report, err := ing.Ingest(ctx, DatasetHoldings, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 1, report.Skipped)

	holdings, err := store.GetHoldingsByCustomer(ctx, "CU001")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "SINV263", holdings[0].ProductCode)
	assert.Equal(t, 150000.0, holdings[0].Balance)
}

func TestIngestMissingIDColumn(t *testing.T) {
	ing, _ := setupIngestor(t)

	_, err := ing.Ingest(context.Background(), DatasetCustomers,
		strings.NewReader("name,income\nAna,62000\n"))
	assert.Error(t, err)
}

func TestIngestBatchesLargeFiles(t *testing.T) {
	ing, store := setupIngestor(t)
	ing.BatchSize = 10
	ctx := context.Background()

	var sb strings.Builder
	sb.WriteString("customer_id,date,amount\n")
	for i := 0; i < 35; i++ {
		sb.WriteString("CU001,2025-04-01,-1.00\n")
	}

	report, err := ing.Ingest(ctx, DatasetTransactions, strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, 35, report.Saved)

	txns, err := store.GetTransactionsByCustomer(ctx, "CU001")
	require.NoError(t, err)
	assert.Len(t, txns, 35)
}
