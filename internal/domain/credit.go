package domain

// CreditTier is the coarse A-D classification derived from a score.
type CreditTier string

const (
	TierA CreditTier = "A"
	TierB CreditTier = "B"
	TierC CreditTier = "C"
	TierD CreditTier = "D"
)

// CreditRisk is the risk level paired with a tier.
type CreditRisk string

const (
	RiskLow      CreditRisk = "low"
	RiskMedium   CreditRisk = "medium"
	RiskHigh     CreditRisk = "high"
	RiskVeryHigh CreditRisk = "very_high"
)

// CreditDecision is derived from the numeric score and never mutated
// independently; it is always recomputed from the current score.
type CreditDecision struct {
	Tier              CreditTier `json:"tier"`
	Risk              CreditRisk `json:"risk"`
	RecommendedAction string     `json:"recommendedAction"`
	Rationale         string     `json:"rationale"`
}
