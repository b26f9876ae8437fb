// Package krnl is the client for the KRNL verifiable-computation
// service. It requests reputation score computations and verifies the
// proofs that accompany them.
package krnl

import (
	"context"
	"errors"

	"proofscore/internal/domain"
)

// Client errors.
var (
	// ErrComputationRequestFailed is returned when a computation request
	// cannot be completed (transport failure or non-2xx response).
	ErrComputationRequestFailed = errors.New("computation request failed")

	// ErrStatusCheckFailed is returned when a computation status poll
	// cannot reach the service.
	ErrStatusCheckFailed = errors.New("computation status check failed")
)

// Computation status values reported by the service.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ComputationStatus is the result of a status poll for an asynchronous
// computation.
type ComputationStatus struct {
	Status string                  `json:"status"`
	Result *domain.ReputationScore `json:"result,omitempty"`
}

// Client defines the verifiable-computation service interface.
type Client interface {
	// ComputeScore requests a reputation computation for a wallet and
	// chain, including staking, governance and repayment sub-computations.
	ComputeScore(ctx context.Context, walletAddress string, chainID int64) (*domain.ReputationScore, *domain.Proof, error)

	// VerifyProof checks the authenticity of a proof. Transport failures
	// report false rather than an error: an unreachable verifier must
	// never be treated as "verified".
	VerifyProof(ctx context.Context, proofHash, signature string) (bool, error)

	// ComputationStatus polls the status of an asynchronous computation.
	ComputationStatus(ctx context.Context, computationID string) (*ComputationStatus, error)

	// HealthCheck probes service liveness. Any failure returns false.
	HealthCheck(ctx context.Context) bool
}
