package domain

import "time"

// Proof is the attestation returned by the verifiable-computation
// service for a single score computation. It is consumed once and never
// persisted independently of the score it backs.
type Proof struct {
	ProofHash     string    `json:"proofHash"`
	Signature     string    `json:"signature"`
	Timestamp     time.Time `json:"timestamp"`
	ComputationID string    `json:"computationId"`
	Verified      bool      `json:"verified"`
}
