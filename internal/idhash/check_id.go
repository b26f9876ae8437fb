package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeCheckID computes a deterministic credit check id using SHA256.
// Formula: SHA256(wallet_address|chain_id|checked_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeCheckID(walletAddress string, chainID int64, checkedAtMs int64) string {
	data := fmt.Sprintf("%s|%d|%d", walletAddress, chainID, checkedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
