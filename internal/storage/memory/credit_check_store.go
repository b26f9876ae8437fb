package memory

import (
	"context"
	"sort"
	"sync"

	"proofscore/internal/domain"
	"proofscore/internal/storage"
)

// CreditCheckStore is an in-memory implementation of storage.CreditCheckStore.
type CreditCheckStore struct {
	mu   sync.RWMutex
	data []*domain.CreditCheckRecord
}

// NewCreditCheckStore creates a new in-memory credit check store.
func NewCreditCheckStore() *CreditCheckStore {
	return &CreditCheckStore{}
}

// Append adds a new audit row.
func (s *CreditCheckStore) Append(_ context.Context, record *domain.CreditCheckRecord) error {
	if record == nil || record.CheckID == "" || record.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *record
	copy.WalletAddress = domain.NormalizeAddress(copy.WalletAddress)
	s.data = append(s.data, &copy)
	return nil
}

// GetByWallet retrieves all audit rows for a wallet on a chain, ordered
// by checked_at ASC.
func (s *CreditCheckStore) GetByWallet(_ context.Context, walletAddress string, chainID int64) ([]*domain.CreditCheckRecord, error) {
	addr := domain.NormalizeAddress(walletAddress)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CreditCheckRecord
	for _, r := range s.data {
		if r.WalletAddress == addr && r.ChainID == chainID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CheckedAt.Before(result[j].CheckedAt)
	})

	return result, nil
}

var _ storage.CreditCheckStore = (*CreditCheckStore)(nil)
