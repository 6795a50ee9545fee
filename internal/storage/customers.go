package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
)

const dateLayout = "2006-01-02"

// formatDate renders a time as YYYY-MM-DD, or empty for a zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// parseDate parses a stored date string, returning the zero time on failure.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SaveCustomers upserts customers by customer_id in a single transaction.
// Re-ingesting the same file is idempotent.
func (s *SQLiteStorage) SaveCustomers(ctx context.Context, customers []model.Customer) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCustomers(customers); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (customer_id, first_name, last_name, birth_date,
			gender, city, country, profession, segment_hint, annual_income)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			birth_date = excluded.birth_date,
			gender = excluded.gender,
			city = excluded.city,
			country = excluded.country,
			profession = excluded.profession,
			segment_hint = excluded.segment_hint,
			annual_income = excluded.annual_income
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare customer upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range customers {
		_, err = stmt.ExecContext(ctx,
			c.CustomerID, c.FirstName, c.LastName, formatDate(c.BirthDate),
			c.Gender, c.City, c.Country, c.Profession, c.SegmentHint, c.AnnualIncome)
		if err != nil {
			return fmt.Errorf("failed to save customer %s: %w", c.CustomerID, err)
		}
	}

	return tx.Commit()
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStorage) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT customer_id, first_name, last_name, birth_date, gender,
		       city, country, profession, segment_hint, annual_income
		FROM customers
		WHERE customer_id = ?
	`, customerID)

	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// GetAllCustomers returns every customer, ordered by ID for stable output.
func (s *SQLiteStorage) GetAllCustomers(ctx context.Context) ([]model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, first_name, last_name, birth_date, gender,
		       city, country, profession, segment_hint, annual_income
		FROM customers
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var customers []model.Customer
	for rows.Next() {
		c, scanErr := scanCustomer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", scanErr)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var c model.Customer
	var birthDate sql.NullString
	var firstName, lastName, gender, city, country, profession, segmentHint sql.NullString

	err := row.Scan(&c.CustomerID, &firstName, &lastName, &birthDate, &gender,
		&city, &country, &profession, &segmentHint, &c.AnnualIncome)
	if err != nil {
		return nil, err
	}

	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Gender = gender.String
	c.City = city.String
	c.Country = country.String
	c.Profession = profession.String
	c.SegmentHint = segmentHint.String
	c.BirthDate = parseDate(birthDate.String)
	return &c, nil
}
