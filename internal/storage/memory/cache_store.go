package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"proofscore/internal/domain"
	"proofscore/internal/storage"
)

// ScoreCacheStore is an in-memory implementation of storage.ScoreCacheStore.
// Expired records are deleted lazily on Get; no background sweep runs.
type ScoreCacheStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CacheRecord

	now func() time.Time // injectable clock for tests
}

// NewScoreCacheStore creates a new in-memory score cache store.
func NewScoreCacheStore() *ScoreCacheStore {
	return &ScoreCacheStore{
		data: make(map[string]*domain.CacheRecord),
		now:  time.Now,
	}
}

// cacheKey builds the map key from a normalized address and chain id.
func cacheKey(walletAddress string, chainID int64) string {
	return fmt.Sprintf("%s:%d", domain.NormalizeAddress(walletAddress), chainID)
}

// Get retrieves the cached score. Returns ErrNotFound when absent or expired.
func (s *ScoreCacheStore) Get(_ context.Context, walletAddress string, chainID int64) (*domain.ReputationScore, error) {
	key := cacheKey(walletAddress, chainID)

	s.mu.RLock()
	record, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}

	if record.Expired(s.now()) {
		s.mu.Lock()
		// Re-check under the write lock; a fresh Put may have raced us.
		if current, ok := s.data[key]; ok && current.Expired(s.now()) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}

	return record.Score.Clone(), nil
}

// Put upserts the score with expiry now+ttl.
func (s *ScoreCacheStore) Put(_ context.Context, walletAddress string, chainID int64, score *domain.ReputationScore, ttl time.Duration) error {
	if score == nil || walletAddress == "" {
		return storage.ErrInvalidInput
	}

	record := &domain.CacheRecord{
		WalletAddress: domain.NormalizeAddress(walletAddress),
		ChainID:       chainID,
		Score:         *score.Clone(),
		ExpiresAt:     s.now().Add(ttl),
	}

	s.mu.Lock()
	s.data[cacheKey(walletAddress, chainID)] = record
	s.mu.Unlock()
	return nil
}

// Delete removes the key; no-op if absent.
func (s *ScoreCacheStore) Delete(_ context.Context, walletAddress string, chainID int64) error {
	s.mu.Lock()
	delete(s.data, cacheKey(walletAddress, chainID))
	s.mu.Unlock()
	return nil
}

var _ storage.ScoreCacheStore = (*ScoreCacheStore)(nil)
