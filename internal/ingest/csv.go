// Package ingest loads CSV exports into the storage layer, mapping source
// headers onto the internal schema.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
)

// DatasetType selects which table a CSV file feeds.
type DatasetType string

// Supported dataset types.
const (
	DatasetCustomers    DatasetType = "customers"
	DatasetTransactions DatasetType = "transactions"
	DatasetHoldings     DatasetType = "holdings"
)

// ParseDatasetType validates a user-supplied dataset type.
func ParseDatasetType(s string) (DatasetType, error) {
	switch DatasetType(strings.ToLower(strings.TrimSpace(s))) {
	case DatasetCustomers:
		return DatasetCustomers, nil
	case DatasetTransactions:
		return DatasetTransactions, nil
	case DatasetHoldings:
		return DatasetHoldings, nil
	default:
		return "", common.NewUserError(
			fmt.Sprintf("unknown dataset type %q (expected customers, transactions or holdings)", s), nil)
	}
}

// headerAliases maps accepted source header spellings to canonical field
// names, per dataset type. Headers outside the table are dropped silently.
var headerAliases = map[DatasetType]map[string]string{
	DatasetCustomers: {
		"customer_id": "customer_id", "client_id": "customer_id", "id": "customer_id",
		"first_name": "first_name", "firstname": "first_name", "given_name": "first_name",
		"last_name": "last_name", "lastname": "last_name", "surname": "last_name",
		"birth_date": "birth_date", "date_of_birth": "birth_date", "dob": "birth_date",
		"gender": "gender", "sex": "gender",
		"city": "city", "country": "country",
		"profession": "profession", "occupation": "profession", "job": "profession",
		"segment": "segment_hint", "segment_hint": "segment_hint",
		"annual_income": "annual_income", "income": "annual_income", "yearly_income": "annual_income",
	},
	DatasetTransactions: {
		"customer_id": "customer_id", "client_id": "customer_id",
		"date": "date", "tx_date": "date", "transaction_date": "date", "booking_date": "date",
		"amount": "amount", "value": "amount",
		"currency": "currency", "ccy": "currency",
		"category": "category", "tx_category": "category", "transaction_category": "category",
		"channel": "channel", "payment_channel": "channel",
	},
	DatasetHoldings: {
		"customer_id": "customer_id", "client_id": "customer_id",
		"product_code": "product_code", "code": "product_code", "product_id": "product_code",
		"product_name": "product_name", "name": "product_name", "product": "product_name",
		"category": "category", "product_category": "category",
		"balance": "balance", "amount": "balance",
		"opened_at": "opened_at", "open_date": "opened_at", "start_date": "opened_at",
	},
}

// Report summarizes one ingestion.
type Report struct {
	Rows    int
	Saved   int
	Skipped int
}

// Ingestor reads CSV files into storage in batches.
type Ingestor struct {
	store     service.Storage
	BatchSize int
}

// New creates an ingestor with the default batch size.
func New(store service.Storage) *Ingestor {
	return &Ingestor{store: store, BatchSize: 500}
}

// IngestFile loads one CSV file of the given dataset type.
func (ing *Ingestor) IngestFile(ctx context.Context, typ DatasetType, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	return ing.Ingest(ctx, typ, f)
}

// Ingest reads CSV rows from r and saves them through the storage layer.
func (ing *Ingestor) Ingest(ctx context.Context, typ DatasetType, r io.Reader) (*Report, error) {
	aliases, ok := headerAliases[typ]
	if !ok {
		return nil, fmt.Errorf("unknown dataset type %q", typ)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, common.NewUserError("file has no header row", err)
	}

	// Map canonical field -> column index; unmapped headers are dropped.
	fields := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, mapped := aliases[key]; mapped {
			if _, dup := fields[canonical]; !dup {
				fields[canonical] = i
			}
		}
	}
	if _, hasID := fields["customer_id"]; !hasID {
		return nil, common.NewUserError("no customer ID column found in header", nil)
	}

	report := &Report{}
	var customers []model.Customer
	var transactions []model.Transaction
	var holdings []model.Holding

	flush := func() error {
		switch typ {
		case DatasetCustomers:
			if len(customers) == 0 {
				return nil
			}
			if err := ing.store.SaveCustomers(ctx, customers); err != nil {
				return err
			}
			report.Saved += len(customers)
			customers = customers[:0]
		case DatasetTransactions:
			if len(transactions) == 0 {
				return nil
			}
			if err := ing.store.SaveTransactions(ctx, transactions); err != nil {
				return err
			}
			report.Saved += len(transactions)
			transactions = transactions[:0]
		case DatasetHoldings:
			if len(holdings) == 0 {
				return nil
			}
			if err := ing.store.SaveHoldings(ctx, holdings); err != nil {
				return err
			}
			report.Saved += len(holdings)
			holdings = holdings[:0]
		}
		return nil
	}

	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", readErr)
		}
		report.Rows++

		get := func(field string) string {
			idx, mapped := fields[field]
			if !mapped || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		customerID := get("customer_id")
		if customerID == "" {
			report.Skipped++
			continue
		}

		switch typ {
		case DatasetCustomers:
			customers = append(customers, model.Customer{
				CustomerID:   customerID,
				FirstName:    get("first_name"),
				LastName:     get("last_name"),
				BirthDate:    parseDateLenient(get("birth_date")),
				Gender:       get("gender"),
				City:         get("city"),
				Country:      get("country"),
				Profession:   get("profession"),
				SegmentHint:  get("segment_hint"),
				AnnualIncome: parseFloatLenient(get("annual_income")),
			})
		case DatasetTransactions:
			raw := get("date")
			transactions = append(transactions, model.Transaction{
				CustomerID: customerID,
				DateRaw:    raw,
				// Date coercion fails open: an unparseable date keeps the
				// raw string and a zero time.
				Date:     parseDateLenient(raw),
				Amount:   parseFloatLenient(get("amount")),
				Currency: get("currency"),
				Category: get("category"),
				Channel:  get("channel"),
			})
		case DatasetHoldings:
			code := get("product_code")
			if code == "" {
				report.Skipped++
				continue
			}
			holdings = append(holdings, model.Holding{
				CustomerID:  customerID,
				ProductCode: code,
				ProductName: get("product_name"),
				Category:    get("category"),
				Balance:     parseFloatLenient(get("balance")),
				OpenedAt:    parseDateLenient(get("opened_at")),
			})
		}

		// Holdings are replaced per customer on save, so they flush once
		// at the end; a mid-file flush would wipe a customer's earlier
		// rows from the same file.
		if typ != DatasetHoldings && len(customers)+len(transactions) >= ing.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	slog.Info("Ingestion finished",
		"type", string(typ),
		"rows", report.Rows,
		"saved", report.Saved,
		"skipped", report.Skipped)
	return report, nil
}

// dateLayouts accepted for lenient date parsing.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

func parseDateLenient(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseFloatLenient parses a numeric string, tolerating thousands
// separators and currency-style whitespace. Unparseable values become 0.
func parseFloatLenient(s string) float64 {
	if s == "" {
		return 0
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
