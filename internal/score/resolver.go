// Package score implements the resolution pipeline for wallet
// reputation scores: cache-aside lookup, verifiable external
// computation, on-chain fallback, credit enrichment and audit
// recording.
package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"proofscore/internal/chain"
	"proofscore/internal/credit"
	"proofscore/internal/domain"
	"proofscore/internal/idhash"
	"proofscore/internal/krnl"
	"proofscore/internal/observability"
	"proofscore/internal/storage"
)

// DefaultCacheTTL is how long a resolved score stays fresh.
const DefaultCacheTTL = 60 * time.Minute

// MaxBatchSize caps how many wallets a single batch resolution accepts.
const MaxBatchSize = 100

// Options configures a Resolver. Client, Cache, Checks, Validator and
// Engine are required; the rest have working defaults.
type Options struct {
	Client       krnl.Client
	Cache        storage.ScoreCacheStore
	Checks       storage.CreditCheckStore
	ChainMetrics chain.MetricsSource
	Validator    chain.Validator
	Engine       *credit.Engine

	// AllowFallback enables degraded on-chain scoring when the external
	// computation fails. When false such failures are terminal.
	AllowFallback bool

	CacheTTL time.Duration
	Logger   *log.Logger
	Metrics  *observability.Metrics
}

// Resolver orchestrates score resolution for wallets.
type Resolver struct {
	client        krnl.Client
	cache         storage.ScoreCacheStore
	checks        storage.CreditCheckStore
	chainMetrics  chain.MetricsSource
	validator     chain.Validator
	engine        *credit.Engine
	allowFallback bool
	cacheTTL      time.Duration
	logger        *log.Logger
	metrics       *observability.Metrics

	now func() time.Time
}

// NewResolver creates a resolver from opts.
func NewResolver(opts Options) *Resolver {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	engine := opts.Engine
	if engine == nil {
		engine = credit.NewEngine()
	}
	return &Resolver{
		client:        opts.Client,
		cache:         opts.Cache,
		checks:        opts.Checks,
		chainMetrics:  opts.ChainMetrics,
		validator:     opts.Validator,
		engine:        engine,
		allowFallback: opts.AllowFallback,
		cacheTTL:      ttl,
		logger:        logger,
		metrics:       opts.Metrics,
		now:           time.Now,
	}
}

// Resolve returns the reputation score for a wallet on a chain. Cached
// scores are served as-is; otherwise the score is computed externally,
// proof-verified, enriched with a credit decision and persisted. With
// forceRefresh the cache read is skipped and the fresh result
// overwrites the cached one.
func (r *Resolver) Resolve(ctx context.Context, walletAddress string, chainID int64, forceRefresh bool) (*domain.ReputationScore, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}
	if !r.validator.IsValidAddress(walletAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}
	address := domain.NormalizeAddress(walletAddress)

	if !forceRefresh {
		cached, err := r.cache.Get(ctx, address, chainID)
		if err == nil {
			r.countResolution(observability.OutcomeCacheHit)
			return cached, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			// A broken cache read degrades to a miss.
			r.logger.Printf("[score] cache read failed for %s chain=%d: %v", address, chainID, err)
		}
	}

	result, outcome, err := r.compute(ctx, address, chainID)
	if err != nil {
		r.countResolution(observability.OutcomeError)
		return nil, err
	}

	decision := r.engine.Evaluate(result)
	result.CreditDecision = &decision

	r.persist(ctx, address, chainID, result)
	r.countResolution(outcome)
	return result, nil
}

// compute produces a fresh score, from the external computation when
// possible and from on-chain fallback otherwise.
func (r *Resolver) compute(ctx context.Context, address string, chainID int64) (*domain.ReputationScore, string, error) {
	result, err := r.computeVerified(ctx, address, chainID)
	if err == nil {
		return result, observability.OutcomeComputed, nil
	}
	if !r.allowFallback {
		return nil, "", err
	}

	r.logger.Printf("[score] verified computation unavailable for %s chain=%d, using fallback: %v", address, chainID, err)
	fallback, fbErr := r.computeFallback(ctx, address, chainID)
	if fbErr != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExternalComputationFailed, fbErr)
	}
	return fallback, observability.OutcomeFallback, nil
}

// computeVerified runs the external computation and verifies its proof.
// A result whose proof does not verify is discarded.
func (r *Resolver) computeVerified(ctx context.Context, address string, chainID int64) (*domain.ReputationScore, error) {
	start := r.now()
	result, proof, err := r.client.ComputeScore(ctx, address, chainID)
	r.observeKRNL("compute", r.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalComputationFailed, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty computation result", ErrExternalComputationFailed)
	}

	if proof != nil && proof.ProofHash != "" && proof.Signature != "" {
		verified, err := r.client.VerifyProof(ctx, proof.ProofHash, proof.Signature)
		if err != nil || !verified {
			r.countVerification(false)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrProofVerificationFailed, err)
			}
			return nil, fmt.Errorf("%w: proof %s rejected", ErrProofVerificationFailed, proof.ProofHash)
		}
		r.countVerification(true)
		result.ProofHash = proof.ProofHash
	}

	result.WalletAddress = address
	if result.LastUpdated.IsZero() {
		result.LastUpdated = r.now()
	}
	return result, nil
}

// ResolveItem identifies one wallet in a batch resolution.
type ResolveItem struct {
	WalletAddress string `json:"walletAddress"`
	ChainID       int64  `json:"chainId"`
}

// ResolveResult is the per-wallet outcome of a batch resolution.
type ResolveResult struct {
	WalletAddress string
	ChainID       int64
	Score         *domain.ReputationScore
	Err           error
}

// ResolveBatch resolves up to MaxBatchSize wallets concurrently. Each
// wallet succeeds or fails independently; results keep input order.
func (r *Resolver) ResolveBatch(ctx context.Context, items []ResolveItem) ([]ResolveResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidAddress)
	}
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(items), MaxBatchSize)
	}
	if r.metrics != nil {
		r.metrics.BatchSize.Observe(float64(len(items)))
	}

	results := make([]ResolveResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item ResolveItem) {
			defer wg.Done()
			score, err := r.Resolve(ctx, item.WalletAddress, item.ChainID, false)
			results[i] = ResolveResult{
				WalletAddress: item.WalletAddress,
				ChainID:       item.ChainID,
				Score:         score,
				Err:           err,
			}
		}(i, item)
	}
	wg.Wait()
	return results, nil
}

// Invalidate removes the cached score for a wallet. The next Resolve
// recomputes. Invalidating an uncached wallet is a no-op.
func (r *Resolver) Invalidate(ctx context.Context, walletAddress string, chainID int64) error {
	if chainID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}
	if !r.validator.IsValidAddress(walletAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}
	address := domain.NormalizeAddress(walletAddress)
	if err := r.cache.Delete(ctx, address, chainID); err != nil {
		return fmt.Errorf("invalidate %s chain=%d: %w", address, chainID, err)
	}
	if r.metrics != nil {
		r.metrics.CacheInvalidated.Inc()
	}
	return nil
}

// Ingest accepts a score produced out-of-band, enriches it with a
// credit decision and persists it exactly as Resolve would. The
// returned score is what later cache reads will serve.
func (r *Resolver) Ingest(ctx context.Context, chainID int64, score *domain.ReputationScore) (*domain.ReputationScore, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}
	if score == nil || !r.validator.IsValidAddress(score.WalletAddress) {
		return nil, fmt.Errorf("%w: ingested score", ErrInvalidAddress)
	}
	if score.Score < domain.MinScore || score.Score > domain.MaxScore {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScore, score.Score)
	}

	result := score.Clone()
	result.WalletAddress = domain.NormalizeAddress(score.WalletAddress)
	if result.LastUpdated.IsZero() {
		result.LastUpdated = r.now()
	}
	decision := r.engine.Evaluate(result)
	result.CreditDecision = &decision

	r.persist(ctx, result.WalletAddress, chainID, result)
	if r.metrics != nil {
		r.metrics.ScoresIngested.Inc()
	}
	return result, nil
}

// History returns the audit trail of credit checks for a wallet,
// oldest first.
func (r *Resolver) History(ctx context.Context, walletAddress string, chainID int64) ([]*domain.CreditCheckRecord, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}
	if !r.validator.IsValidAddress(walletAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}
	return r.checks.GetByWallet(ctx, domain.NormalizeAddress(walletAddress), chainID)
}

// persist writes the cache entry and the audit row concurrently. Both
// writes are best-effort: the caller already has the score, so a
// storage failure is logged and counted but never surfaced.
func (r *Resolver) persist(ctx context.Context, address string, chainID int64, result *domain.ReputationScore) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.cache.Put(ctx, address, chainID, result, r.cacheTTL); err != nil {
			r.logger.Printf("[score] cache write failed for %s chain=%d: %v", address, chainID, err)
			if r.metrics != nil {
				r.metrics.CacheWriteErrors.Inc()
			}
		}
	}()
	go func() {
		defer wg.Done()
		r.recordCheck(ctx, address, chainID, result)
	}()
	wg.Wait()
}

// recordCheck appends an audit row for a score that carries a credit
// decision.
func (r *Resolver) recordCheck(ctx context.Context, address string, chainID int64, result *domain.ReputationScore) {
	if result.CreditDecision == nil {
		return
	}
	breakdown, err := json.Marshal(result.Breakdown)
	if err != nil {
		r.logger.Printf("[score] breakdown marshal failed for %s chain=%d: %v", address, chainID, err)
		return
	}

	checkedAt := r.now().UTC()
	record := &domain.CreditCheckRecord{
		CheckID:       idhash.ComputeCheckID(address, chainID, checkedAt.UnixMilli()),
		WalletAddress: address,
		ChainID:       chainID,
		Score:         result.Score,
		Tier:          result.CreditDecision.Tier,
		Risk:          result.CreditDecision.Risk,
		Breakdown:     string(breakdown),
		CheckedAt:     checkedAt,
	}
	if err := r.checks.Append(ctx, record); err != nil {
		r.logger.Printf("[score] credit check append failed for %s chain=%d: %v", address, chainID, err)
		if r.metrics != nil {
			r.metrics.RecordWriteErrors.Inc()
		}
		return
	}
	if r.metrics != nil {
		r.metrics.ChecksRecorded.Inc()
	}
}

func (r *Resolver) countResolution(outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (r *Resolver) countVerification(ok bool) {
	if r.metrics == nil {
		return
	}
	result := "verified"
	if !ok {
		result = "rejected"
	}
	r.metrics.ProofVerifications.WithLabelValues(result).Inc()
}

func (r *Resolver) observeKRNL(operation string, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.KRNLRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
