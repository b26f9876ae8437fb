package domain

import "time"

// WalletMetrics is the basic on-chain activity snapshot for a wallet,
// read from the blockchain metrics source. Only TotalTransactions feeds
// the fallback score; the rest is surfaced to API consumers.
type WalletMetrics struct {
	Address                 string    `json:"address"`
	ChainID                 int64     `json:"chainId"`
	TotalTransactions       int       `json:"totalTransactions"`
	AverageTransactionValue string    `json:"averageTransactionValue"`
	LastActivity            time.Time `json:"lastActivity"`
}
