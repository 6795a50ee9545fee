package model

import "time"

// Transaction is an append-only fact record for a single customer transaction.
//
// Date is parsed best-effort from DateRaw; ingestion fails open, so a row
// whose date could not be parsed keeps the raw string and a zero Date.
type Transaction struct {
	Date       time.Time
	ID         int64
	CustomerID string
	DateRaw    string
	Currency   string
	Category   string
	Channel    string
	Amount     float64
}

// Holding is a fact record for a product the customer currently owns.
// Re-ingestion may replace holdings wholesale.
type Holding struct {
	OpenedAt    time.Time
	ID          int64
	CustomerID  string
	ProductCode string
	ProductName string
	Category    string
	Balance     float64
}
