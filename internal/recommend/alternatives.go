package recommend

import (
	"math"
	"sort"
	"strings"

	"github.com/wellbank/segmint/internal/features"
)

// Alternative pairs a catalog product with its fit-adjusted probability and
// the improvement over the recommendation it would replace.
type Alternative struct {
	ProductCode     string
	ProductName     string
	FitScore        float64
	AcceptanceProb  float64
	Improvement     float64
	ExpectedRevenue float64
}

// Alternative-selection bounds.
const (
	maxAlternatives     = 5
	improvementFloor    = -0.05
	maxAdjustedProb     = 0.95
	professionBonus     = 0.10
	fitBase             = 0.5
	fitWeightIncome     = 0.15
	fitWeightBalance    = 0.15
	fitWeightTxCount    = 0.15
	fitWeightSpending   = 0.10
	fitWeightMaxAge     = 0.10
	fitWeightMaxBalance = 0.10
)

// FitScore rates how well a customer profile satisfies a product's
// constraints. A bonus is earned only when a constraint is set and met, so
// a product with no constraints scores the 0.5 base.
func FitScore(product Product, p features.Profile) float64 {
	c := product.Constraints
	fit := fitBase

	if c.MinIncome > 0 && p.AnnualIncome >= c.MinIncome {
		fit += fitWeightIncome
	}
	if c.MinBalance > 0 && p.TotalBalance >= c.MinBalance {
		fit += fitWeightBalance
	}
	if c.MinTransactions > 0 && p.TxCount >= c.MinTransactions {
		fit += fitWeightTxCount
	}
	if c.MinSpending > 0 && p.TotalSpent >= c.MinSpending {
		fit += fitWeightSpending
	}
	if c.MaxAge > 0 && p.Age <= c.MaxAge {
		fit += fitWeightMaxAge
	}
	if c.MaxBalance > 0 && p.TotalBalance <= c.MaxBalance {
		fit += fitWeightMaxBalance
	}

	profession := strings.ToLower(p.Profession)
	if strings.Contains(profession, "business") && strings.Contains(product.Code, "BUSINESS") {
		fit += professionBonus
	}
	if (strings.Contains(profession, "manager") ||
		strings.Contains(profession, "director") ||
		strings.Contains(profession, "executive")) &&
		strings.Contains(product.Code, "PREMIUM") {
		fit += professionBonus
	}

	return fit
}

// Alternatives scores the unowned rule-scored products against the profile
// and returns those whose fit-adjusted probability doesn't fall more than
// improvementFloor below the current recommendation, best first, top 5.
// Coded persona products carry no BaseProb and are not candidates here.
func (m *Mapper) Alternatives(currentCode string, currentProb float64, p features.Profile, owned map[string]bool) []Alternative {
	var alternatives []Alternative

	for _, product := range m.catalog.Products() {
		if product.BaseProb == 0 {
			continue
		}
		if product.Code == currentCode || owned[product.Code] {
			continue
		}

		fit := FitScore(product, p)
		adjusted := math.Min(maxAdjustedProb, product.BaseProb*(0.7+0.3*fit))
		improvement := adjusted - currentProb
		if improvement < improvementFloor {
			continue
		}

		alternatives = append(alternatives, Alternative{
			ProductCode:     product.Code,
			ProductName:     product.Name,
			FitScore:        fit,
			AcceptanceProb:  adjusted,
			Improvement:     improvement,
			ExpectedRevenue: product.Revenue,
		})
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Improvement > alternatives[j].Improvement
	})
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return alternatives
}
