package domain

import "time"

// CacheRecord is a cached score snapshot keyed by (normalized wallet
// address, chain id). A record past ExpiresAt is treated as a miss.
type CacheRecord struct {
	WalletAddress string          `json:"walletAddress"`
	ChainID       int64           `json:"chainId"`
	Score         ReputationScore `json:"score"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// Expired reports whether the record has passed its TTL at the given time.
func (r *CacheRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CreditCheckRecord is an immutable audit row written once per
// resolution that produced a credit decision. Rows are never updated
// or deleted by the pipeline.
type CreditCheckRecord struct {
	CheckID       string     `json:"checkId"`
	WalletAddress string     `json:"walletAddress"`
	ChainID       int64      `json:"chainId"`
	Score         int        `json:"score"`
	Tier          CreditTier `json:"tier"`
	Risk          CreditRisk `json:"risk"`
	Breakdown     string     `json:"breakdown"` // JSON blob of the score breakdown
	CheckedAt     time.Time  `json:"checkedAt"`
}
