package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wellbank/segmint/internal/model"
)

// SaveTransactions appends transaction facts in a single transaction.
// Transactions are append-only; ingestion never updates existing rows.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (customer_id, tx_date, amount, currency, tx_category, channel)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		_, err = stmt.ExecContext(ctx,
			txn.CustomerID, txn.DateRaw, txn.Amount, txn.Currency, txn.Category, txn.Channel)
		if err != nil {
			return fmt.Errorf("failed to save transaction for %s: %w", txn.CustomerID, err)
		}
	}

	return tx.Commit()
}

// GetAllTransactions returns every transaction fact.
func (s *SQLiteStorage) GetAllTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `
		SELECT id, customer_id, tx_date, amount, currency, tx_category, channel
		FROM transactions
		ORDER BY customer_id, id
	`)
}

// GetTransactionsByCustomer returns a single customer's transactions.
func (s *SQLiteStorage) GetTransactionsByCustomer(ctx context.Context, customerID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `
		SELECT id, customer_id, tx_date, amount, currency, tx_category, channel
		FROM transactions
		WHERE customer_id = ?
		ORDER BY id
	`, customerID)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var dateRaw, currency, category, channel sql.NullString

		if scanErr := rows.Scan(&txn.ID, &txn.CustomerID, &dateRaw, &txn.Amount,
			&currency, &category, &channel); scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}

		txn.DateRaw = dateRaw.String
		txn.Date = parseDate(dateRaw.String)
		txn.Currency = currency.String
		txn.Category = category.String
		txn.Channel = channel.String
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// SaveHoldings replaces the holdings of the affected customers and inserts
// the new rows, all in one transaction. Re-ingestion swaps holdings wholesale.
func (s *SQLiteStorage) SaveHoldings(ctx context.Context, holdings []model.Holding) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHoldings(holdings); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seen := make(map[string]bool)
	for _, h := range holdings {
		if seen[h.CustomerID] {
			continue
		}
		seen[h.CustomerID] = true
		if _, delErr := tx.ExecContext(ctx,
			`DELETE FROM holdings WHERE customer_id = ?`, h.CustomerID); delErr != nil {
			return fmt.Errorf("failed to clear holdings for %s: %w", h.CustomerID, delErr)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO holdings (customer_id, product_code, product_name, category, balance, opened_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare holding insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, h := range holdings {
		_, err = stmt.ExecContext(ctx,
			h.CustomerID, h.ProductCode, h.ProductName, h.Category, h.Balance, formatDate(h.OpenedAt))
		if err != nil {
			return fmt.Errorf("failed to save holding for %s: %w", h.CustomerID, err)
		}
	}

	return tx.Commit()
}

// GetAllHoldings returns every holding fact.
func (s *SQLiteStorage) GetAllHoldings(ctx context.Context) ([]model.Holding, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryHoldings(ctx, `
		SELECT id, customer_id, product_code, product_name, category, balance, opened_at
		FROM holdings
		ORDER BY customer_id, id
	`)
}

// GetHoldingsByCustomer returns a single customer's holdings.
func (s *SQLiteStorage) GetHoldingsByCustomer(ctx context.Context, customerID string) ([]model.Holding, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}
	return s.queryHoldings(ctx, `
		SELECT id, customer_id, product_code, product_name, category, balance, opened_at
		FROM holdings
		WHERE customer_id = ?
		ORDER BY id
	`, customerID)
}

// GetOwnedProducts returns the set of product codes a customer already holds.
func (s *SQLiteStorage) GetOwnedProducts(ctx context.Context, customerID string) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT product_code FROM holdings WHERE customer_id = ?`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	owned := make(map[string]bool)
	for rows.Next() {
		var code string
		if scanErr := rows.Scan(&code); scanErr != nil {
			return nil, fmt.Errorf("failed to scan product code: %w", scanErr)
		}
		owned[code] = true
	}
	return owned, rows.Err()
}

func (s *SQLiteStorage) queryHoldings(ctx context.Context, query string, args ...any) ([]model.Holding, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var productName, category, openedAt sql.NullString

		if scanErr := rows.Scan(&h.ID, &h.CustomerID, &h.ProductCode,
			&productName, &category, &h.Balance, &openedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", scanErr)
		}

		h.ProductName = productName.String
		h.Category = category.String
		h.OpenedAt = parseDate(openedAt.String)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
