package recommend

// Persona describes the marketing profile attached to a cluster and the
// products it leads with.
type Persona struct {
	Name       string
	Candidates []string
	BaseProb   float64
}

// personas maps cluster labels to personas for the six-cluster category
// model. Candidate order encodes priority; rank discounts apply in order.
var personas = map[int]Persona{
	0: {Name: "Conservative Savers", Candidates: []string{"DPAM682", "FPEN058", "SAVINGS_PLAN"}, BaseProb: 0.75},
	1: {Name: "High Volume Spenders", Candidates: []string{"CADB439", "CACR432", "REWARDS_CREDIT"}, BaseProb: 0.70},
	2: {Name: "Young Professionals", Candidates: []string{"PRPE078", "CADB783", "SAVINGS_PLAN"}, BaseProb: 0.65},
	3: {Name: "Family/Home Focused", Candidates: []string{"MTUU356", "ASSA566", "MORTGAGE"}, BaseProb: 0.72},
	4: {Name: "Investment Seekers", Candidates: []string{"SINV263", "CINV819", "PREMIUM_INVESTMENT"}, BaseProb: 0.80},
	5: {Name: "Basic Users", Candidates: []string{"CCOR602", "CADB877", "BASIC_CHECKING"}, BaseProb: 0.60},
}

// fallbackPersona covers cluster labels outside the persona map, which can
// happen when a run was trained with a non-default cluster count.
var fallbackPersona = Persona{
	Name:       "General Banking",
	Candidates: []string{"BASIC_CHECKING"},
	BaseProb:   0.50,
}

// PersonaFor returns the persona for a cluster label.
func PersonaFor(cluster int) Persona {
	if p, ok := personas[cluster]; ok {
		return p
	}
	return fallbackPersona
}

// Rank discount bounds for the persona path.
const (
	rankDiscount = 0.1
	minProb      = 0.30
	maxProb      = 0.95
)

// rankProb discounts the persona base probability by candidate rank and
// clamps into [minProb, maxProb].
func rankProb(base float64, rank int) float64 {
	p := base * (1 - rankDiscount*float64(rank))
	if p < minProb {
		return minProb
	}
	if p > maxProb {
		return maxProb
	}
	return p
}
