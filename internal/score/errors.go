package score

import "errors"

// Resolution errors. The routing layer maps each kind to a distinct
// response code, so they must stay distinguishable via errors.Is.
var (
	// ErrInvalidAddress is returned for malformed wallet addresses.
	// Bad input is never retried.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidChainID is returned when the chain id is missing or
	// not a positive integer.
	ErrInvalidChainID = errors.New("invalid chain id")

	// ErrProofVerificationFailed is returned when a computation's proof
	// does not verify. The result is treated as untrusted and is never
	// cached.
	ErrProofVerificationFailed = errors.New("proof verification failed")

	// ErrExternalComputationFailed is returned when the external
	// computation cannot be completed and fallback is not permitted.
	ErrExternalComputationFailed = errors.New("external computation failed")

	// ErrInvalidScore is returned by Ingest for scores outside the
	// 0-1000 range.
	ErrInvalidScore = errors.New("score out of range")
)
