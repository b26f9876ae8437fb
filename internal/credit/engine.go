// Package credit maps reputation scores to credit tiers. The mapping is
// a static lookup table; evaluation is deterministic and side-effect-free.
package credit

import "proofscore/internal/domain"

// actions holds the fixed recommended action per tier.
var actions = map[domain.CreditTier]string{
	domain.TierA: "Eligible for undercollateralized lending up to protocol max.",
	domain.TierB: "Eligible for partially collateralized products.",
	domain.TierC: "Require additional collateral or manual review.",
	domain.TierD: "Decline automated credit; request more data.",
}

// rationales holds the fixed rationale per tier.
var rationales = map[domain.CreditTier]string{
	domain.TierA: "Consistent history and strong participation across metrics.",
	domain.TierB: "Healthy activity but some moderate risk factors detected.",
	domain.TierC: "Limited history or inconsistent repayment signals.",
	domain.TierD: "High risk indicators present; insufficient trustworthy activity.",
}

// Engine classifies scores into credit decisions.
type Engine struct{}

// NewEngine creates a new credit decision engine.
func NewEngine() *Engine {
	return &Engine{}
}

// CategorizeScore maps a numeric score to its tier/risk tuple.
// Boundaries: >=800 A/low, >=600 B/medium, >=400 C/high, else D/very_high.
func (e *Engine) CategorizeScore(score int) domain.CreditDecision {
	var tier domain.CreditTier
	var risk domain.CreditRisk

	switch {
	case score >= 800:
		tier, risk = domain.TierA, domain.RiskLow
	case score >= 600:
		tier, risk = domain.TierB, domain.RiskMedium
	case score >= 400:
		tier, risk = domain.TierC, domain.RiskHigh
	default:
		tier, risk = domain.TierD, domain.RiskVeryHigh
	}

	return domain.CreditDecision{
		Tier:              tier,
		Risk:              risk,
		RecommendedAction: actions[tier],
		Rationale:         rationales[tier],
	}
}

// Evaluate derives the credit decision for a reputation score.
// It is a pure function of score.Score alone.
func (e *Engine) Evaluate(score *domain.ReputationScore) domain.CreditDecision {
	return e.CategorizeScore(score.Score)
}
