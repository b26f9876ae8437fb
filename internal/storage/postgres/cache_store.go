package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"proofscore/internal/domain"
	"proofscore/internal/storage"
)

// ScoreCacheStore implements storage.ScoreCacheStore using PostgreSQL.
// The score snapshot is stored as JSONB; the (wallet_address, chain_id)
// primary key plus ON CONFLICT upsert gives per-key last-write-wins.
type ScoreCacheStore struct {
	pool *Pool
}

// NewScoreCacheStore creates a new ScoreCacheStore.
func NewScoreCacheStore(pool *Pool) *ScoreCacheStore {
	return &ScoreCacheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreCacheStore = (*ScoreCacheStore)(nil)

// Get retrieves the cached score. Returns ErrNotFound when absent or
// expired; an expired row is deleted on read.
func (s *ScoreCacheStore) Get(ctx context.Context, walletAddress string, chainID int64) (*domain.ReputationScore, error) {
	addr := domain.NormalizeAddress(walletAddress)

	query := `
		SELECT score, expires_at
		FROM score_cache
		WHERE wallet_address = $1 AND chain_id = $2
	`

	var raw []byte
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, query, addr, chainID).Scan(&raw, &expiresAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cached score: %w", err)
	}

	if !time.Now().Before(expiresAt) {
		// Self-cleaning read: drop the stale row and report a miss.
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM score_cache WHERE wallet_address = $1 AND chain_id = $2 AND expires_at = $3`,
			addr, chainID, expiresAt,
		); err != nil {
			return nil, fmt.Errorf("delete expired cache row: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	var score domain.ReputationScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, fmt.Errorf("unmarshal cached score: %w", err)
	}
	return &score, nil
}

// Put upserts the score with expiry now+ttl.
func (s *ScoreCacheStore) Put(ctx context.Context, walletAddress string, chainID int64, score *domain.ReputationScore, ttl time.Duration) error {
	if score == nil || walletAddress == "" {
		return storage.ErrInvalidInput
	}

	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	query := `
		INSERT INTO score_cache (wallet_address, chain_id, score, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (wallet_address, chain_id)
		DO UPDATE SET score = EXCLUDED.score, expires_at = EXCLUDED.expires_at, updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		domain.NormalizeAddress(walletAddress), chainID, raw, time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("upsert cached score: %w", err)
	}
	return nil
}

// Delete removes the key; no-op if absent.
func (s *ScoreCacheStore) Delete(ctx context.Context, walletAddress string, chainID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM score_cache WHERE wallet_address = $1 AND chain_id = $2`,
		domain.NormalizeAddress(walletAddress), chainID,
	)
	if err != nil {
		return fmt.Errorf("delete cached score: %w", err)
	}
	return nil
}
