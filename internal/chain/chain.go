// Package chain provides the blockchain-facing collaborators of the
// score pipeline: wallet address validation and basic wallet metrics
// reads over Ethereum JSON-RPC.
package chain

import (
	"context"
	"errors"
	"regexp"

	"proofscore/internal/domain"
)

// ErrUnsupportedChain is returned when no RPC endpoint is configured
// for the requested chain.
var ErrUnsupportedChain = errors.New("no rpc endpoint for chain")

// MetricsSource reads basic wallet activity metrics.
type MetricsSource interface {
	// GetMetrics retrieves activity metrics for a wallet on a chain.
	GetMetrics(ctx context.Context, address string, chainID int64) (*domain.WalletMetrics, error)
}

// Validator checks wallet address format.
type Validator interface {
	// IsValidAddress reports whether the address is well-formed.
	IsValidAddress(address string) bool
}

// evmAddressRe matches a 20-byte hex EVM address with 0x prefix.
var evmAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// EVMValidator validates EVM account addresses.
type EVMValidator struct{}

// NewEVMValidator creates a new EVM address validator.
func NewEVMValidator() *EVMValidator {
	return &EVMValidator{}
}

// IsValidAddress reports whether address is a well-formed EVM address.
func (v *EVMValidator) IsValidAddress(address string) bool {
	return evmAddressRe.MatchString(address)
}

var _ Validator = (*EVMValidator)(nil)
