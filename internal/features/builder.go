// Package features turns raw customer facts into numeric feature tables
// for clustering and scoring.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wellbank/segmint/internal/common"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
)

// Table is a dense feature matrix with one row per customer.
// Column order is deterministic for a given input population.
type Table struct {
	CustomerIDs []string
	Columns     []string
	Rows        [][]float64
}

// Profile carries the raw aggregates the scoring rules test against,
// independent of which feature columns made it into the table.
type Profile struct {
	Profession   string
	Age          float64
	AnnualIncome float64
	TotalBalance float64
	TotalSpent   float64
	TxCount      int
}

// Dataset bundles the feature table with per-customer profiles.
type Dataset struct {
	Table    *Table
	Profiles map[string]Profile
}

// Builder constructs feature datasets from the storage layer.
type Builder struct {
	store service.Storage
	now   func() time.Time
}

// NewBuilder creates a feature builder.
func NewBuilder(store service.Storage) *Builder {
	return &Builder{store: store, now: time.Now}
}

// customerFacts groups a customer's raw facts for aggregation.
type customerFacts struct {
	customer     model.Customer
	transactions []model.Transaction
	holdings     []model.Holding
}

func (b *Builder) loadFacts(ctx context.Context) ([]customerFacts, error) {
	customers, err := b.store.GetAllCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	if len(customers) == 0 {
		return nil, common.ErrNoCustomers
	}

	transactions, err := b.store.GetAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	holdings, err := b.store.GetAllHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	txByCustomer := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		txByCustomer[txn.CustomerID] = append(txByCustomer[txn.CustomerID], txn)
	}
	holdingsByCustomer := make(map[string][]model.Holding)
	for _, h := range holdings {
		holdingsByCustomer[h.CustomerID] = append(holdingsByCustomer[h.CustomerID], h)
	}

	facts := make([]customerFacts, 0, len(customers))
	for _, c := range customers {
		facts = append(facts, customerFacts{
			customer:     c,
			transactions: txByCustomer[c.CustomerID],
			holdings:     holdingsByCustomer[c.CustomerID],
		})
	}
	return facts, nil
}

func (b *Builder) profile(f customerFacts) Profile {
	p := Profile{
		Profession:   f.customer.Profession,
		Age:          f.customer.Age(b.now()),
		AnnualIncome: f.customer.AnnualIncome,
		TxCount:      len(f.transactions),
	}
	for _, h := range f.holdings {
		p.TotalBalance += h.Balance
	}
	for _, txn := range f.transactions {
		if txn.Amount < 0 {
			p.TotalSpent += -txn.Amount
		}
	}
	return p
}

// sanitize replaces NaN/Inf with zero so the scaler never propagates them.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// BuildAggregate produces the fixed-schema aggregate feature table used by
// the default batch path.
func (b *Builder) BuildAggregate(ctx context.Context) (*Dataset, error) {
	facts, err := b.loadFacts(ctx)
	if err != nil {
		return nil, err
	}

	hasActivity := false
	for _, f := range facts {
		if len(f.transactions) > 0 || len(f.holdings) > 0 {
			hasActivity = true
			break
		}
	}
	if !hasActivity {
		return b.buildDemographic(facts)
	}

	columns := []string{
		"age", "annual_income",
		"total_balance", "avg_balance", "product_count", "holding_category_diversity",
		"total_spent", "avg_transaction", "std_transaction", "transaction_count",
		"tx_category_diversity", "days_since_last_tx",
	}

	table := &Table{Columns: columns}
	profiles := make(map[string]Profile, len(facts))
	now := b.now()

	for _, f := range facts {
		p := b.profile(f)
		profiles[f.customer.CustomerID] = p

		amounts := make([]float64, 0, len(f.transactions))
		var lastTx time.Time
		for _, txn := range f.transactions {
			amounts = append(amounts, txn.Amount)
			if txn.Date.After(lastTx) {
				lastTx = txn.Date
			}
		}

		avgBalance := 0.0
		if len(f.holdings) > 0 {
			avgBalance = p.TotalBalance / float64(len(f.holdings))
		}
		avgTx, stdTx := meanStd(amounts)
		daysSince := 0.0
		if !lastTx.IsZero() {
			daysSince = now.Sub(lastTx).Hours() / 24
		}

		row := []float64{
			p.Age, p.AnnualIncome,
			p.TotalBalance, avgBalance, float64(len(f.holdings)),
			categoryDiversity(holdingCategories(f.holdings)),
			p.TotalSpent, avgTx, stdTx, float64(len(f.transactions)),
			categoryDiversity(txCategories(f.transactions)), daysSince,
		}
		for i := range row {
			row[i] = sanitize(row[i])
		}
		table.CustomerIDs = append(table.CustomerIDs, f.customer.CustomerID)
		table.Rows = append(table.Rows, row)
	}

	return &Dataset{Table: table, Profiles: profiles}, nil
}

// BuildCategory produces the data-dependent category-pivot feature table used
// by the artifact-persisting path. The column set varies with the categories
// present in the data; downstream consumers must tolerate drift.
func (b *Builder) BuildCategory(ctx context.Context) (*Dataset, error) {
	facts, err := b.loadFacts(ctx)
	if err != nil {
		return nil, err
	}

	hasActivity := false
	for _, f := range facts {
		if len(f.transactions) > 0 || len(f.holdings) > 0 {
			hasActivity = true
			break
		}
	}
	if !hasActivity {
		return b.buildDemographic(facts)
	}

	profiles := make(map[string]Profile, len(facts))
	vectors := make([]map[string]float64, 0, len(facts))
	ids := make([]string, 0, len(facts))
	columnSet := make(map[string]bool)

	for _, f := range facts {
		p := b.profile(f)
		profiles[f.customer.CustomerID] = p

		vec := categoryVector(f)
		for col := range vec {
			columnSet[col] = true
		}
		vectors = append(vectors, vec)
		ids = append(ids, f.customer.CustomerID)
	}

	columns := orderCategoryColumns(columnSet)
	if len(columns) == 0 {
		return nil, common.ErrNoFeatures
	}

	table := &Table{CustomerIDs: ids, Columns: columns}
	for _, vec := range vectors {
		row := make([]float64, len(columns))
		for i, col := range columns {
			row[i] = sanitize(vec[col])
		}
		table.Rows = append(table.Rows, row)
	}

	return &Dataset{Table: table, Profiles: profiles}, nil
}

// categoryBaseColumns is the fixed prefix of the category-variant schema.
var categoryBaseColumns = []string{
	"total_spent", "avg_transaction", "std_transaction",
	"transaction_count", "transaction_min", "transaction_max",
	"total_balance", "avg_balance", "product_count",
}

// categoryVector computes the category-variant feature map for one customer.
func categoryVector(f customerFacts) map[string]float64 {
	vec := make(map[string]float64)

	amounts := make([]float64, 0, len(f.transactions))
	for _, txn := range f.transactions {
		amounts = append(amounts, txn.Amount)
		if cat := normalizeCategory(txn.Category); cat != "" {
			vec["tx_cat_total_"+cat] += math.Abs(txn.Amount)
			vec["tx_cat_count_"+cat]++
		}
	}

	var spent float64
	minAmt, maxAmt := math.Inf(1), math.Inf(-1)
	for _, a := range amounts {
		if a < 0 {
			spent += -a
		}
		minAmt = math.Min(minAmt, a)
		maxAmt = math.Max(maxAmt, a)
	}
	avgTx, stdTx := meanStd(amounts)

	vec["total_spent"] = spent
	vec["avg_transaction"] = avgTx
	vec["std_transaction"] = stdTx
	vec["transaction_count"] = float64(len(amounts))
	if len(amounts) > 0 {
		vec["transaction_min"] = minAmt
		vec["transaction_max"] = maxAmt
	}

	var totalBalance float64
	for _, h := range f.holdings {
		totalBalance += h.Balance
		if cat := normalizeCategory(h.Category); cat != "" {
			vec["holding_cat_balance_"+cat] += h.Balance
		}
	}
	vec["total_balance"] = totalBalance
	if len(f.holdings) > 0 {
		vec["avg_balance"] = totalBalance / float64(len(f.holdings))
	} else {
		vec["avg_balance"] = 0
	}
	vec["product_count"] = float64(len(f.holdings))

	return vec
}

// CustomerVector computes the category-variant feature map for a single
// customer, for the online path. The caller aligns it against a stored
// column order.
func (b *Builder) CustomerVector(ctx context.Context, customerID string) (map[string]float64, *Profile, error) {
	customer, err := b.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := b.store.GetTransactionsByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	holdings, err := b.store.GetHoldingsByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	f := customerFacts{customer: *customer, transactions: transactions, holdings: holdings}
	vec := categoryVector(f)
	for col, v := range vec {
		vec[col] = sanitize(v)
	}
	p := b.profile(f)
	return vec, &p, nil
}

// buildDemographic is the fallback schema when the population has no
// transaction or holding facts at all: age, income, one-hot gender and
// segment hint.
func (b *Builder) buildDemographic(facts []customerFacts) (*Dataset, error) {
	genderSet := make(map[string]bool)
	segmentSet := make(map[string]bool)
	for _, f := range facts {
		if g := normalizeCategory(f.customer.Gender); g != "" {
			genderSet[g] = true
		}
		if s := normalizeCategory(f.customer.SegmentHint); s != "" {
			segmentSet[s] = true
		}
	}

	columns := []string{"age", "annual_income"}
	for _, g := range sortedKeys(genderSet) {
		columns = append(columns, "gender_"+g)
	}
	for _, s := range sortedKeys(segmentSet) {
		columns = append(columns, "segment_"+s)
	}

	table := &Table{Columns: columns}
	profiles := make(map[string]Profile, len(facts))

	for _, f := range facts {
		p := b.profile(f)
		profiles[f.customer.CustomerID] = p

		row := make([]float64, len(columns))
		row[0] = sanitize(p.Age)
		row[1] = sanitize(p.AnnualIncome)
		for i, col := range columns[2:] {
			switch {
			case strings.HasPrefix(col, "gender_"):
				if normalizeCategory(f.customer.Gender) == strings.TrimPrefix(col, "gender_") {
					row[i+2] = 1
				}
			case strings.HasPrefix(col, "segment_"):
				if normalizeCategory(f.customer.SegmentHint) == strings.TrimPrefix(col, "segment_") {
					row[i+2] = 1
				}
			}
		}
		table.CustomerIDs = append(table.CustomerIDs, f.customer.CustomerID)
		table.Rows = append(table.Rows, row)
	}

	return &Dataset{Table: table, Profiles: profiles}, nil
}

// orderCategoryColumns puts the fixed base columns first, then the pivot
// columns sorted lexically, so the schema is reproducible for a given input.
func orderCategoryColumns(set map[string]bool) []string {
	columns := make([]string, 0, len(set))
	for _, base := range categoryBaseColumns {
		if set[base] {
			columns = append(columns, base)
			delete(set, base)
		}
	}
	columns = append(columns, sortedKeys(set)...)
	return columns
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func txCategories(transactions []model.Transaction) map[string]bool {
	set := make(map[string]bool)
	for _, txn := range transactions {
		if c := normalizeCategory(txn.Category); c != "" {
			set[c] = true
		}
	}
	return set
}

func holdingCategories(holdings []model.Holding) map[string]bool {
	set := make(map[string]bool)
	for _, h := range holdings {
		if c := normalizeCategory(h.Category); c != "" {
			set[c] = true
		}
	}
	return set
}

func categoryDiversity(set map[string]bool) float64 {
	return float64(len(set))
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean = stat.Mean(values, nil)
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	return mean, std
}
