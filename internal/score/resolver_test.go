package score

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"proofscore/internal/chain"
	chainstub "proofscore/internal/chain/stub"
	"proofscore/internal/credit"
	"proofscore/internal/domain"
	"proofscore/internal/krnl"
	krnlstub "proofscore/internal/krnl/stub"
	"proofscore/internal/storage"
	"proofscore/internal/storage/memory"
)

const (
	testWallet = "0x1234567890abcdef1234567890abcdef12345678"
	testChain  = int64(1)
)

type testEnv struct {
	resolver *Resolver
	client   *krnlstub.Client
	metrics  *chainstub.MetricsSource
	cache    *memory.ScoreCacheStore
	checks   *memory.CreditCheckStore
}

func newTestEnv(allowFallback bool) *testEnv {
	client := krnlstub.NewClient()
	metrics := chainstub.NewMetricsSource()
	cache := memory.NewScoreCacheStore()
	checks := memory.NewCreditCheckStore()
	resolver := NewResolver(Options{
		Client:        client,
		Cache:         cache,
		Checks:        checks,
		ChainMetrics:  metrics,
		Validator:     chain.NewEVMValidator(),
		Engine:        credit.NewEngine(),
		AllowFallback: allowFallback,
	})
	return &testEnv{resolver: resolver, client: client, metrics: metrics, cache: cache, checks: checks}
}

func testScore(wallet string, value int) *domain.ReputationScore {
	return &domain.ReputationScore{
		WalletAddress: wallet,
		Score:         value,
		Confidence:    0.92,
		LastUpdated:   time.Now(),
		Breakdown: domain.ScoreBreakdown{
			TransactionConsistency:  value,
			RepaymentHistory:        value,
			StakingBehavior:         value,
			GovernanceParticipation: value,
			RiskFactors:             []domain.RiskFactor{},
		},
		Metadata: domain.ScoreMetadata{TotalTransactions: 410, AccountAgeDays: 120, Chains: []string{"1"}},
	}
}

func TestResolveComputesEnrichesAndPersists(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 850), &domain.Proof{
		ProofHash: "0xproof", Signature: "0xsig", ComputationID: "comp-1",
	})

	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Score != 850 {
		t.Errorf("score = %d, want 850", got.Score)
	}
	if got.ProofHash != "0xproof" {
		t.Errorf("proof hash = %q, want 0xproof", got.ProofHash)
	}
	if got.CreditDecision == nil {
		t.Fatal("expected credit decision")
	}
	if got.CreditDecision.Tier != domain.TierA || got.CreditDecision.Risk != domain.RiskLow {
		t.Errorf("decision = %s/%s, want A/low", got.CreditDecision.Tier, got.CreditDecision.Risk)
	}
	if env.client.VerifyCalls != 1 {
		t.Errorf("verify calls = %d, want 1", env.client.VerifyCalls)
	}

	cached, err := env.cache.Get(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("cache Get after resolve: %v", err)
	}
	if cached.Score != 850 || cached.CreditDecision == nil {
		t.Errorf("cached score incomplete: %+v", cached)
	}

	records, err := env.checks.GetByWallet(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Score != 850 || rec.Tier != domain.TierA || rec.Risk != domain.RiskLow {
		t.Errorf("audit row = %+v", rec)
	}
	if rec.CheckID == "" {
		t.Error("audit row missing check id")
	}
	var breakdown domain.ScoreBreakdown
	if err := json.Unmarshal([]byte(rec.Breakdown), &breakdown); err != nil {
		t.Errorf("breakdown is not valid JSON: %v", err)
	}
}

func TestResolveCacheHitSkipsExternalCall(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 700), &domain.Proof{ProofHash: "0xp", Signature: "0xs"})

	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if env.client.ComputeCalls != 1 {
		t.Errorf("compute calls = %d, want 1", env.client.ComputeCalls)
	}
}

func TestResolveForceRefreshRecomputes(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 700), &domain.Proof{ProofHash: "0xp", Signature: "0xs"})

	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, true); err != nil {
		t.Fatalf("forced Resolve: %v", err)
	}
	if env.client.ComputeCalls != 2 {
		t.Errorf("compute calls = %d, want 2", env.client.ComputeCalls)
	}
}

func TestResolveNormalizesAddressCase(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 700), &domain.Proof{ProofHash: "0xp", Signature: "0xs"})

	mixed := "0x1234567890ABCDEF1234567890abcdef12345678"
	if _, err := env.resolver.Resolve(context.Background(), mixed, testChain, false); err != nil {
		t.Fatalf("mixed-case Resolve: %v", err)
	}
	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("lowercase Resolve: %v", err)
	}
	if env.client.ComputeCalls != 1 {
		t.Errorf("compute calls = %d, want 1 (case variants share a cache key)", env.client.ComputeCalls)
	}
	if got.WalletAddress != testWallet {
		t.Errorf("wallet = %q, want normalized %q", got.WalletAddress, testWallet)
	}
}

func TestResolveInvalidInput(t *testing.T) {
	env := newTestEnv(false)

	if _, err := env.resolver.Resolve(context.Background(), "not-an-address", testChain, false); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("bad address error = %v, want ErrInvalidAddress", err)
	}
	if _, err := env.resolver.Resolve(context.Background(), testWallet, 0, false); !errors.Is(err, ErrInvalidChainID) {
		t.Errorf("bad chain error = %v, want ErrInvalidChainID", err)
	}
	if env.client.ComputeCalls != 0 {
		t.Errorf("compute calls = %d, want 0 for invalid input", env.client.ComputeCalls)
	}
}

func TestResolveRejectedProofFallsBackWhenAllowed(t *testing.T) {
	env := newTestEnv(true)
	env.client.AddScore(testWallet, testScore(testWallet, 850), &domain.Proof{ProofHash: "0xbad", Signature: "0xsig"})
	env.client.VerifyResult = false
	env.metrics.AddMetrics(testWallet, &domain.WalletMetrics{
		Address:           testWallet,
		ChainID:           testChain,
		TotalTransactions: 1250,
		LastActivity:      time.Now(),
	})

	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if env.client.VerifyCalls != 1 {
		t.Errorf("verify calls = %d, want 1", env.client.VerifyCalls)
	}
	if got.Score != 700 {
		t.Errorf("fallback score = %d, want 700", got.Score)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("confidence = %v, want %v", got.Confidence, FallbackConfidence)
	}

	cached, err := env.cache.Get(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("fallback result should be cached: %v", err)
	}
	if cached.Score != 700 {
		t.Errorf("cached score = %d, want the fallback score, never the unverified one", cached.Score)
	}
}

func TestResolveRejectedProofIsTerminalInStrictMode(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 850), &domain.Proof{ProofHash: "0xbad", Signature: "0xsig"})
	env.client.VerifyResult = false

	_, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("error = %v, want ErrProofVerificationFailed", err)
	}
	if _, err := env.cache.Get(context.Background(), testWallet, testChain); !errors.Is(err, storage.ErrNotFound) {
		t.Error("unverified result must not be cached")
	}
	records, _ := env.checks.GetByWallet(context.Background(), testWallet, testChain)
	if len(records) != 0 {
		t.Errorf("audit rows = %d, want 0 for unverified result", len(records))
	}
}

func TestResolveHashOnlyProofSkipsVerification(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 640), &domain.Proof{ProofHash: "0xonlyhash"})

	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if env.client.VerifyCalls != 0 {
		t.Errorf("verify calls = %d, want 0 for a proof without a signature", env.client.VerifyCalls)
	}
	if got.Score != 640 {
		t.Errorf("score = %d, want 640", got.Score)
	}
}

func TestResolveMissingProofSkipsVerification(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 640), nil)

	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if env.client.VerifyCalls != 0 {
		t.Errorf("verify calls = %d, want 0 without a proof", env.client.VerifyCalls)
	}
	if got.CreditDecision == nil || got.CreditDecision.Tier != domain.TierB {
		t.Errorf("decision = %+v, want tier B", got.CreditDecision)
	}
}

func TestResolveFallbackWhenComputationFails(t *testing.T) {
	env := newTestEnv(true)
	env.client.ComputeErr = krnl.ErrComputationRequestFailed
	env.metrics.AddMetrics(testWallet, &domain.WalletMetrics{
		Address:           testWallet,
		ChainID:           testChain,
		TotalTransactions: 1250,
		LastActivity:      time.Now(),
	})

	got, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Score != 700 {
		t.Errorf("fallback score = %d, want 700", got.Score)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("confidence = %v, want %v", got.Confidence, FallbackConfidence)
	}
	if got.Breakdown.TransactionConsistency != 1000 {
		t.Errorf("tx consistency = %d, want capped 1000", got.Breakdown.TransactionConsistency)
	}
	if got.CreditDecision == nil || got.CreditDecision.Tier != domain.TierB {
		t.Errorf("decision = %+v, want tier B", got.CreditDecision)
	}

	cached, err := env.cache.Get(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("fallback result should be cached: %v", err)
	}
	if cached.Confidence != FallbackConfidence {
		t.Errorf("cached confidence = %v, want %v", cached.Confidence, FallbackConfidence)
	}
}

func TestResolveStrictModeSurfacesComputationFailure(t *testing.T) {
	env := newTestEnv(false)
	env.client.ComputeErr = krnl.ErrComputationRequestFailed

	_, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if !errors.Is(err, ErrExternalComputationFailed) {
		t.Fatalf("error = %v, want ErrExternalComputationFailed", err)
	}
	if env.metrics.Calls != 0 {
		t.Error("strict mode must not consult chain metrics")
	}
}

func TestResolveFallbackFailureIsTerminal(t *testing.T) {
	env := newTestEnv(true)
	env.client.ComputeErr = krnl.ErrComputationRequestFailed
	env.metrics.Err = errors.New("rpc down")

	_, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false)
	if !errors.Is(err, ErrExternalComputationFailed) {
		t.Fatalf("error = %v, want ErrExternalComputationFailed", err)
	}
}

func TestResolveBatchPerItemOutcomes(t *testing.T) {
	env := newTestEnv(false)
	second := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	env.client.AddScore(testWallet, testScore(testWallet, 820), &domain.Proof{ProofHash: "0xp1", Signature: "0xs1"})
	env.client.AddScore(second, testScore(second, 450), &domain.Proof{ProofHash: "0xp2", Signature: "0xs2"})

	results, err := env.resolver.ResolveBatch(context.Background(), []ResolveItem{
		{WalletAddress: testWallet, ChainID: testChain},
		{WalletAddress: "bogus", ChainID: testChain},
		{WalletAddress: second, ChainID: testChain},
	})
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Score == nil || results[0].Score.Score != 820 {
		t.Errorf("result[0] = %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrInvalidAddress) {
		t.Errorf("result[1] err = %v, want ErrInvalidAddress", results[1].Err)
	}
	if results[2].Err != nil || results[2].Score == nil || results[2].Score.Score != 450 {
		t.Errorf("result[2] = %+v", results[2])
	}
}

func TestResolveBatchLimits(t *testing.T) {
	env := newTestEnv(false)

	if _, err := env.resolver.ResolveBatch(context.Background(), nil); err == nil {
		t.Error("expected error for empty batch")
	}

	items := make([]ResolveItem, MaxBatchSize+1)
	for i := range items {
		items[i] = ResolveItem{WalletAddress: testWallet, ChainID: testChain}
	}
	if _, err := env.resolver.ResolveBatch(context.Background(), items); err == nil {
		t.Errorf("expected error for batch of %d", len(items))
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 700), &domain.Proof{ProofHash: "0xp", Signature: "0xs"})

	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := env.resolver.Invalidate(context.Background(), testWallet, testChain); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if env.client.ComputeCalls != 2 {
		t.Errorf("compute calls = %d, want 2", env.client.ComputeCalls)
	}
}

func TestInvalidateUnknownWalletIsNoop(t *testing.T) {
	env := newTestEnv(false)
	if err := env.resolver.Invalidate(context.Background(), testWallet, testChain); err != nil {
		t.Fatalf("Invalidate unknown wallet: %v", err)
	}
}

func TestIngestEnrichesAndCaches(t *testing.T) {
	env := newTestEnv(false)

	pushed := testScore(testWallet, 830)
	got, err := env.resolver.Ingest(context.Background(), testChain, pushed)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got.CreditDecision == nil || got.CreditDecision.Tier != domain.TierA {
		t.Fatalf("ingested decision = %+v, want tier A", got.CreditDecision)
	}

	cached, err := env.cache.Get(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("cache Get after ingest: %v", err)
	}
	if *cached.CreditDecision != *got.CreditDecision {
		t.Errorf("cached decision %+v differs from ingested %+v", cached.CreditDecision, got.CreditDecision)
	}
	if env.client.ComputeCalls != 0 {
		t.Errorf("compute calls = %d, want 0 for ingest", env.client.ComputeCalls)
	}

	records, _ := env.checks.GetByWallet(context.Background(), testWallet, testChain)
	if len(records) != 1 {
		t.Errorf("audit rows = %d, want 1", len(records))
	}
}

func TestIngestRejectsInvalidScores(t *testing.T) {
	env := newTestEnv(false)

	if _, err := env.resolver.Ingest(context.Background(), testChain, nil); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("nil score error = %v, want ErrInvalidAddress", err)
	}
	out := testScore(testWallet, 1001)
	if _, err := env.resolver.Ingest(context.Background(), testChain, out); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("out-of-range error = %v, want ErrInvalidScore", err)
	}
	neg := testScore(testWallet, -1)
	if _, err := env.resolver.Ingest(context.Background(), testChain, neg); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("negative error = %v, want ErrInvalidScore", err)
	}
}

func TestHistoryReturnsAuditTrail(t *testing.T) {
	env := newTestEnv(false)
	env.client.AddScore(testWallet, testScore(testWallet, 610), &domain.Proof{ProofHash: "0xp", Signature: "0xs"})

	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, false); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := env.resolver.Resolve(context.Background(), testWallet, testChain, true); err != nil {
		t.Fatalf("forced Resolve: %v", err)
	}

	records, err := env.resolver.History(context.Background(), testWallet, testChain)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(records))
	}
	if records[0].CheckedAt.After(records[1].CheckedAt) {
		t.Error("history not ordered oldest first")
	}
}
