package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Reference data tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS customers (
					customer_id TEXT PRIMARY KEY,
					first_name TEXT,
					last_name TEXT,
					birth_date TEXT,
					gender TEXT,
					city TEXT,
					country TEXT,
					profession TEXT,
					segment_hint TEXT,
					annual_income REAL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					customer_id TEXT NOT NULL,
					tx_date TEXT,
					amount REAL NOT NULL DEFAULT 0,
					currency TEXT,
					tx_category TEXT,
					channel TEXT
				)`,
				`CREATE INDEX idx_transactions_customer ON transactions(customer_id)`,

				`CREATE TABLE IF NOT EXISTS holdings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					customer_id TEXT NOT NULL,
					product_code TEXT NOT NULL,
					product_name TEXT,
					category TEXT,
					balance REAL NOT NULL DEFAULT 0,
					opened_at TEXT
				)`,
				`CREATE INDEX idx_holdings_customer ON holdings(customer_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Batch pipeline tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS batch_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					started_at DATETIME NOT NULL,
					finished_at DATETIME,
					status TEXT NOT NULL CHECK (status IN ('running', 'success', 'failed')),
					notes TEXT
				)`,
				`CREATE INDEX idx_batch_runs_status ON batch_runs(status)`,

				`CREATE TABLE IF NOT EXISTS customer_clusters (
					run_id INTEGER NOT NULL,
					customer_id TEXT NOT NULL,
					cluster_id INTEGER NOT NULL,
					distance_to_centroid REAL DEFAULT 0,
					UNIQUE(run_id, customer_id),
					FOREIGN KEY (run_id) REFERENCES batch_runs(id)
				)`,
				`CREATE INDEX idx_customer_clusters_run ON customer_clusters(run_id, cluster_id)`,

				`CREATE TABLE IF NOT EXISTS recommendations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id INTEGER NOT NULL,
					customer_id TEXT NOT NULL,
					product_code TEXT NOT NULL,
					acceptance_prob REAL NOT NULL DEFAULT 0,
					expected_revenue REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'pending',
					FOREIGN KEY (run_id) REFERENCES batch_runs(id)
				)`,
				`CREATE INDEX idx_recommendations_run ON recommendations(run_id, status)`,
				`CREATE INDEX idx_recommendations_customer ON recommendations(customer_id)`,

				`CREATE TABLE IF NOT EXISTS recommendation_explanations (
					recommendation_id INTEGER PRIMARY KEY,
					narrative TEXT,
					key_factors_json TEXT,
					model_name TEXT,
					FOREIGN KEY (recommendation_id) REFERENCES recommendations(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Advisor workflow columns on recommendations",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE recommendations ADD COLUMN edited_narrative TEXT`,
				`ALTER TABLE recommendations ADD COLUMN edited_reason TEXT`,
				`ALTER TABLE recommendations ADD COLUMN edited_by TEXT`,
				`ALTER TABLE recommendations ADD COLUMN edited_at DATETIME`,
				`ALTER TABLE recommendations ADD COLUMN sent_at DATETIME`,
				`ALTER TABLE recommendations ADD COLUMN sent_by TEXT`,
				`ALTER TABLE recommendations ADD COLUMN dismissed_at DATETIME`,
				`ALTER TABLE recommendations ADD COLUMN dismissed_by TEXT`,
				`ALTER TABLE recommendations ADD COLUMN dismissed_reason TEXT`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Create migrations table if it doesn't exist
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}
	}

	return nil
}
