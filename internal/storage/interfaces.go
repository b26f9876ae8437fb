package storage

import (
	"context"
	"time"

	"proofscore/internal/domain"
)

// ScoreCacheStore provides cache-aside storage of reputation scores
// keyed by (normalized wallet address, chain id). Each key holds a
// single value; the most recent Put always wins.
type ScoreCacheStore interface {
	// Get retrieves the cached score for a key. Returns ErrNotFound when
	// the key is absent or the record has expired; an expired record is
	// deleted on read.
	Get(ctx context.Context, walletAddress string, chainID int64) (*domain.ReputationScore, error)

	// Put upserts the score for a key with expiry now+ttl. Concurrent
	// Puts for the same key are last-write-wins.
	Put(ctx context.Context, walletAddress string, chainID int64, score *domain.ReputationScore, ttl time.Duration) error

	// Delete removes the key. Removing a non-existent key is not an error.
	Delete(ctx context.Context, walletAddress string, chainID int64) error
}

// CreditCheckStore is the append-only audit ledger of credit decisions.
// Rows are never updated or deleted.
type CreditCheckStore interface {
	// Append adds a new audit row. Returns ErrInvalidInput on a nil or
	// incomplete record.
	Append(ctx context.Context, record *domain.CreditCheckRecord) error

	// GetByWallet retrieves all audit rows for a wallet on a chain,
	// ordered by checked_at ASC.
	GetByWallet(ctx context.Context, walletAddress string, chainID int64) ([]*domain.CreditCheckRecord, error)
}
