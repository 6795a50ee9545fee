// Package recommend maps clustered customers to product suggestions via a
// canonical catalog, cluster personas, threshold rules and fit scores.
package recommend

import "strings"

// Constraints are the eligibility thresholds a product tests a customer
// profile against. Zero values mean the dimension is unconstrained.
type Constraints struct {
	MinIncome       float64
	MinBalance      float64
	MaxBalance      float64
	MinSpending     float64
	MaxAge          float64
	MinTransactions int
}

// Product is one catalog entry. BaseProb and Revenue feed both the
// threshold path and the fit-score path.
type Product struct {
	Code        string
	Name        string
	BaseProb    float64
	Revenue     float64
	Constraints Constraints
}

// Catalog is the immutable product catalog, loaded once and injected.
type Catalog struct {
	products []Product
	byCode   map[string]Product
}

// NewCatalog builds the canonical catalog: the generic rule-scored codes
// plus the coded products the personas reference.
func NewCatalog() *Catalog {
	products := []Product{
		{Code: "PREMIUM_INVESTMENT", Name: "Premium Investment Portfolio", BaseProb: 0.85, Revenue: 5000,
			Constraints: Constraints{MinIncome: 50000, MinBalance: 100000}},
		{Code: "WEALTH_MANAGEMENT", Name: "Wealth Management Advisory", BaseProb: 0.75, Revenue: 3000,
			Constraints: Constraints{MinIncome: 50000, MinBalance: 100000}},
		{Code: "REWARDS_CREDIT", Name: "Rewards Credit Card", BaseProb: 0.70, Revenue: 800,
			Constraints: Constraints{MinTransactions: 50}},
		{Code: "PERSONAL_LOAN", Name: "Personal Loan", BaseProb: 0.60, Revenue: 2000,
			Constraints: Constraints{MaxBalance: 10000, MinSpending: 50000}},
		{Code: "SAVINGS_PLAN", Name: "Automatic Savings Plan", BaseProb: 0.65, Revenue: 500,
			Constraints: Constraints{MaxAge: 35, MinIncome: 30000}},
		{Code: "BASIC_CHECKING", Name: "Basic Checking Account", BaseProb: 0.50, Revenue: 200},
		{Code: "BUSINESS_ACCOUNT", Name: "Business Account", BaseProb: 0.65, Revenue: 1500,
			Constraints: Constraints{MinIncome: 40000}},
		{Code: "MORTGAGE", Name: "Home Mortgage", BaseProb: 0.55, Revenue: 10000,
			Constraints: Constraints{MinIncome: 35000}},

		// Coded products referenced by the cluster personas.
		{Code: "DPAM682", Name: "Term Deposit Plus"},
		{Code: "FPEN058", Name: "Pension Fund"},
		{Code: "CADB439", Name: "Everyday Debit Card"},
		{Code: "CACR432", Name: "Cashback Credit Card"},
		{Code: "PRPE078", Name: "Personal Starter Package"},
		{Code: "CADB783", Name: "Digital Debit Card"},
		{Code: "MTUU356", Name: "Family Mortgage"},
		{Code: "ASSA566", Name: "Home Insurance"},
		{Code: "SINV263", Name: "Stock Investment Account"},
		{Code: "CINV819", Name: "Managed Investment Fund"},
		{Code: "CCOR602", Name: "Current Account"},
		{Code: "CADB877", Name: "Prepaid Card"},
	}

	byCode := make(map[string]Product, len(products))
	for _, p := range products {
		byCode[p.Code] = p
	}
	return &Catalog{products: products, byCode: byCode}
}

// Product looks up a catalog entry by code.
func (c *Catalog) Product(code string) (Product, bool) {
	p, ok := c.byCode[code]
	return p, ok
}

// Products returns all catalog entries in declaration order.
func (c *Catalog) Products() []Product {
	return c.products
}

// ProductName returns the display name for a code, or the code itself for
// products outside the catalog.
func (c *Catalog) ProductName(code string) string {
	if p, ok := c.byCode[code]; ok && p.Name != "" {
		return p.Name
	}
	return code
}

// RevenueForCode estimates expected revenue from the product code itself,
// used on the persona path where coded products carry no explicit revenue.
func RevenueForCode(code string) float64 {
	upper := strings.ToUpper(code)
	switch {
	case strings.Contains(upper, "PREMIUM"), strings.Contains(upper, "WEALTH"):
		return 5000
	case strings.Contains(upper, "INVESTMENT"), strings.Contains(upper, "INV"):
		return 3000
	case strings.Contains(upper, "LOAN"), strings.Contains(upper, "MORTGAGE"):
		return 2000
	case strings.Contains(upper, "CREDIT"), strings.Contains(upper, "CARD"),
		strings.Contains(upper, "CADB"), strings.Contains(upper, "CACR"):
		return 800
	default:
		return 200
	}
}
