package score

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"proofscore/internal/domain"
)

// FallbackConfidence marks a score produced without verified external
// data. Consumers can filter on it.
const FallbackConfidence = 0.5

// Neutral placeholder for dimensions that cannot be derived from
// on-chain metrics alone.
const fallbackNeutral = 500

const fallbackTxCap = 1000

// Overall score weighting, shared with the external computation.
const (
	weightTransactionConsistency = 0.4
	weightRepaymentHistory       = 0.3
	weightStakingBehavior        = 0.2
	weightGovernance             = 0.1
)

// computeFallback derives a degraded score directly from on-chain
// activity. Only transaction consistency carries signal; the remaining
// dimensions are pinned to the neutral midpoint.
func (r *Resolver) computeFallback(ctx context.Context, address string, chainID int64) (*domain.ReputationScore, error) {
	metrics, err := r.chainMetrics.GetMetrics(ctx, address, chainID)
	if err != nil {
		return nil, fmt.Errorf("fallback metrics for %s: %w", address, err)
	}

	txConsistency := metrics.TotalTransactions
	if txConsistency > fallbackTxCap {
		txConsistency = fallbackTxCap
	}

	overall := int(math.Round(
		weightTransactionConsistency*float64(txConsistency) +
			weightRepaymentHistory*fallbackNeutral +
			weightStakingBehavior*fallbackNeutral +
			weightGovernance*fallbackNeutral))

	return &domain.ReputationScore{
		WalletAddress: address,
		Score:         overall,
		Confidence:    FallbackConfidence,
		LastUpdated:   r.now(),
		Breakdown: domain.ScoreBreakdown{
			TransactionConsistency:  txConsistency,
			RepaymentHistory:        fallbackNeutral,
			StakingBehavior:         fallbackNeutral,
			GovernanceParticipation: fallbackNeutral,
			RiskFactors:             []domain.RiskFactor{},
		},
		Metadata: domain.ScoreMetadata{
			TotalTransactions: metrics.TotalTransactions,
			Chains:            []string{strconv.FormatInt(chainID, 10)},
		},
	}, nil
}
