// Package stub provides an in-memory krnl.Client for testing.
package stub

import (
	"context"
	"sync"

	"proofscore/internal/domain"
	"proofscore/internal/krnl"
)

// Client implements krnl.Client for testing. Call counts are tracked so
// tests can assert whether the external service was invoked.
type Client struct {
	mu sync.Mutex

	// Scores maps "address:chainID"-independent wallet addresses to the
	// score/proof pair returned by ComputeScore.
	Scores map[string]*domain.ReputationScore
	Proofs map[string]*domain.Proof

	// ComputeErr, when set, is returned by every ComputeScore call.
	ComputeErr error

	// VerifyResult is returned by VerifyProof.
	VerifyResult bool

	// Statuses maps computation ids to status results.
	Statuses map[string]*krnl.ComputationStatus

	// Healthy is returned by HealthCheck.
	Healthy bool

	// Call counters.
	ComputeCalls int
	VerifyCalls  int
	StatusCalls  int
	HealthCalls  int
}

// NewClient creates a new stub client.
func NewClient() *Client {
	return &Client{
		Scores:       make(map[string]*domain.ReputationScore),
		Proofs:       make(map[string]*domain.Proof),
		Statuses:     make(map[string]*krnl.ComputationStatus),
		VerifyResult: true,
		Healthy:      true,
	}
}

// AddScore registers the score and proof returned for a wallet.
func (c *Client) AddScore(walletAddress string, score *domain.ReputationScore, proof *domain.Proof) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr := domain.NormalizeAddress(walletAddress)
	c.Scores[addr] = score
	c.Proofs[addr] = proof
}

// ComputeScore returns the registered score for a wallet.
func (c *Client) ComputeScore(_ context.Context, walletAddress string, _ int64) (*domain.ReputationScore, *domain.Proof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ComputeCalls++
	if c.ComputeErr != nil {
		return nil, nil, c.ComputeErr
	}

	addr := domain.NormalizeAddress(walletAddress)
	score, ok := c.Scores[addr]
	if !ok {
		return nil, nil, krnl.ErrComputationRequestFailed
	}
	return score.Clone(), c.Proofs[addr], nil
}

// VerifyProof returns the configured verification result.
func (c *Client) VerifyProof(_ context.Context, _, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VerifyCalls++
	return c.VerifyResult, nil
}

// ComputationStatus returns the registered status for a computation id.
func (c *Client) ComputationStatus(_ context.Context, computationID string) (*krnl.ComputationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.StatusCalls++
	status, ok := c.Statuses[computationID]
	if !ok {
		return nil, krnl.ErrStatusCheckFailed
	}
	return status, nil
}

// HealthCheck returns the configured health state.
func (c *Client) HealthCheck(_ context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HealthCalls++
	return c.Healthy
}

var _ krnl.Client = (*Client)(nil)
