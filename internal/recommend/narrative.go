package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wellbank/segmint/internal/features"
)

// thresholdNarrative explains a threshold-rule suggestion from the profile
// facts that made the rule fire.
func thresholdNarrative(code string, p features.Profile) string {
	var reasons []string

	switch code {
	case "PREMIUM_INVESTMENT", "WEALTH_MANAGEMENT":
		reasons = append(reasons,
			fmt.Sprintf("annual income of %.0f supports premium products", p.AnnualIncome),
			fmt.Sprintf("total balance of %.0f indicates investable assets", p.TotalBalance))
	case "REWARDS_CREDIT":
		reasons = append(reasons,
			fmt.Sprintf("%d transactions show high card activity", p.TxCount))
	case "PERSONAL_LOAN":
		reasons = append(reasons,
			fmt.Sprintf("spending of %.0f against a balance of %.0f suggests a financing need", p.TotalSpent, p.TotalBalance))
	case "SAVINGS_PLAN":
		reasons = append(reasons,
			fmt.Sprintf("age %.0f with income %.0f fits an early savings habit", p.Age, p.AnnualIncome))
	default:
		reasons = append(reasons, "suitable entry product for the current activity level")
	}

	return strings.Join(reasons, "; ")
}

// personaNarrative explains a persona suggestion.
func personaNarrative(persona Persona, p features.Profile) string {
	reasons := []string{
		fmt.Sprintf("customer profile matches the %s segment", persona.Name),
	}
	if p.AnnualIncome > 0 {
		reasons = append(reasons, fmt.Sprintf("annual income of %.0f", p.AnnualIncome))
	}
	if p.TotalBalance > 0 {
		reasons = append(reasons, fmt.Sprintf("holdings balance of %.0f", p.TotalBalance))
	}
	if p.TxCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d recorded transactions", p.TxCount))
	}
	return strings.Join(reasons, "; ")
}

// keyFactorsJSON serializes the profile facts the scoring looked at.
func keyFactorsJSON(p features.Profile) string {
	factors := map[string]any{
		"age":           p.Age,
		"annual_income": p.AnnualIncome,
		"total_balance": p.TotalBalance,
		"total_spent":   p.TotalSpent,
		"tx_count":      p.TxCount,
	}
	if p.Profession != "" {
		factors["profession"] = p.Profession
	}
	data, err := json.Marshal(factors)
	if err != nil {
		return "{}"
	}
	return string(data)
}
