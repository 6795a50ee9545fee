package recommend

import (
	"sort"

	"github.com/wellbank/segmint/internal/features"
)

// Model identifiers recorded on explanations, distinguishing which scoring
// path produced a recommendation.
const (
	ModelThresholdRules = "rules/v1"
	ModelPersonaRules   = "batch_rules/v1"
)

// topSuggestions is the per-customer truncation applied at the generation
// boundary.
const topSuggestions = 3

// Suggestion is one scored product for one customer.
type Suggestion struct {
	ProductCode     string
	ProductName     string
	Persona         string
	Narrative       string
	KeyFactorsJSON  string
	ModelName       string
	AcceptanceProb  float64
	ExpectedRevenue float64
}

// Mapper scores products for customers using the catalog and personas.
type Mapper struct {
	catalog *Catalog
}

// NewMapper creates a mapper over the canonical catalog.
func NewMapper(catalog *Catalog) *Mapper {
	return &Mapper{catalog: catalog}
}

// Threshold applies the fixed threshold rules to a customer profile. This is
// the aggregate batch path: cluster-independent, deterministic, falling back
// to BASIC_CHECKING when nothing else fires. Each rule is evaluated on its
// own, so a profile can match several at once.
func (m *Mapper) Threshold(p features.Profile, owned map[string]bool) []Suggestion {
	var codes []string

	if p.AnnualIncome > 50000 && p.TotalBalance > 100000 {
		codes = append(codes, "PREMIUM_INVESTMENT", "WEALTH_MANAGEMENT")
	}
	if p.TxCount > 50 {
		codes = append(codes, "REWARDS_CREDIT")
	}
	if p.TotalBalance < 10000 && p.TotalSpent > 50000 {
		codes = append(codes, "PERSONAL_LOAN")
	}
	if p.Age < 35 && p.AnnualIncome > 30000 {
		codes = append(codes, "SAVINGS_PLAN")
	}
	if len(codes) == 0 {
		codes = append(codes, "BASIC_CHECKING")
	}

	suggestions := make([]Suggestion, 0, len(codes))
	for _, code := range codes {
		if owned[code] {
			continue
		}
		product, _ := m.catalog.Product(code)
		suggestions = append(suggestions, Suggestion{
			ProductCode:     code,
			ProductName:     m.catalog.ProductName(code),
			AcceptanceProb:  product.BaseProb,
			ExpectedRevenue: product.Revenue,
			Narrative:       thresholdNarrative(code, p),
			KeyFactorsJSON:  keyFactorsJSON(p),
			ModelName:       ModelThresholdRules,
		})
	}

	return truncate(orderSuggestions(suggestions))
}

// Persona scores the cluster persona's candidate products for a customer.
// This is the category batch path and the online path.
func (m *Mapper) Persona(cluster int, p features.Profile, owned map[string]bool) []Suggestion {
	persona := PersonaFor(cluster)

	suggestions := make([]Suggestion, 0, len(persona.Candidates))
	rank := 0
	for _, code := range persona.Candidates {
		if owned[code] {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			ProductCode:     code,
			ProductName:     m.catalog.ProductName(code),
			Persona:         persona.Name,
			AcceptanceProb:  rankProb(persona.BaseProb, rank),
			ExpectedRevenue: RevenueForCode(code),
			Narrative:       personaNarrative(persona, p),
			KeyFactorsJSON:  keyFactorsJSON(p),
			ModelName:       ModelPersonaRules,
		})
		rank++
	}

	return truncate(orderSuggestions(suggestions))
}

// orderSuggestions sorts by acceptance probability descending, ties broken
// by expected revenue descending.
func orderSuggestions(s []Suggestion) []Suggestion {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].AcceptanceProb != s[j].AcceptanceProb {
			return s[i].AcceptanceProb > s[j].AcceptanceProb
		}
		return s[i].ExpectedRevenue > s[j].ExpectedRevenue
	})
	return s
}

func truncate(s []Suggestion) []Suggestion {
	if len(s) > topSuggestions {
		return s[:topSuggestions]
	}
	return s
}
