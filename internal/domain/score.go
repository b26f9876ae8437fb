package domain

import (
	"strings"
	"time"
)

// Score bounds on the 0-1000 scale.
const (
	MinScore = 0
	MaxScore = 1000
)

// ReputationScore is the enriched scoring result for a wallet.
// Scores are on a 0-1000 scale; confidence is 0-1 and signals how
// reliable the score is (fallback scores always report 0.5).
type ReputationScore struct {
	WalletAddress  string          `json:"walletAddress"`
	Score          int             `json:"score"`
	Confidence     float64         `json:"confidence"`
	LastUpdated    time.Time       `json:"lastUpdated"`
	ProofHash      string          `json:"proofHash,omitempty"`
	Breakdown      ScoreBreakdown  `json:"breakdown"`
	Metadata       ScoreMetadata   `json:"metadata"`
	CreditDecision *CreditDecision `json:"creditDecision,omitempty"`
}

// ScoreBreakdown holds the four sub-scores, each on the 0-1000 scale.
type ScoreBreakdown struct {
	TransactionConsistency  int          `json:"transactionConsistency"`
	RepaymentHistory        int          `json:"repaymentHistory"`
	StakingBehavior         int          `json:"stakingBehavior"`
	GovernanceParticipation int          `json:"governanceParticipation"`
	RiskFactors             []RiskFactor `json:"riskFactors"`
}

// ScoreMetadata carries basic wallet context attached to a score.
type ScoreMetadata struct {
	TotalTransactions int      `json:"totalTransactions"`
	AccountAgeDays    int      `json:"accountAge"`
	Chains            []string `json:"chains"`
}

// RiskFactorType enumerates detected anomaly categories.
type RiskFactorType string

const (
	RiskSybil             RiskFactorType = "sybil"
	RiskWashTrading       RiskFactorType = "wash_trading"
	RiskSuspiciousPattern RiskFactorType = "suspicious_pattern"
	RiskLowActivity       RiskFactorType = "low_activity"
)

// RiskSeverity enumerates risk factor severities.
type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "low"
	SeverityMedium RiskSeverity = "medium"
	SeverityHigh   RiskSeverity = "high"
)

// RiskFactor is a single anomaly detected during score computation.
type RiskFactor struct {
	Type        RiskFactorType `json:"type"`
	Severity    RiskSeverity   `json:"severity"`
	Description string         `json:"description"`
	DetectedAt  time.Time      `json:"detectedAt"`
}

// Clone returns a deep copy of the score, so stored snapshots cannot
// be mutated through the original.
func (s *ReputationScore) Clone() *ReputationScore {
	if s == nil {
		return nil
	}
	out := *s
	if s.Breakdown.RiskFactors != nil {
		out.Breakdown.RiskFactors = make([]RiskFactor, len(s.Breakdown.RiskFactors))
		copy(out.Breakdown.RiskFactors, s.Breakdown.RiskFactors)
	}
	if s.Metadata.Chains != nil {
		out.Metadata.Chains = make([]string, len(s.Metadata.Chains))
		copy(out.Metadata.Chains, s.Metadata.Chains)
	}
	if s.CreditDecision != nil {
		decision := *s.CreditDecision
		out.CreditDecision = &decision
	}
	return &out
}

// NormalizeAddress lowercases a wallet address for use as a key.
// Address equality is case-insensitive everywhere in the pipeline.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
