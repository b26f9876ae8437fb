// Package stub provides in-memory chain collaborators for testing.
package stub

import (
	"context"
	"sync"

	"proofscore/internal/chain"
	"proofscore/internal/domain"
)

// MetricsSource implements chain.MetricsSource for testing.
type MetricsSource struct {
	mu sync.Mutex

	// Metrics maps normalized wallet address to returned metrics.
	Metrics map[string]*domain.WalletMetrics

	// Err, when set, is returned by every GetMetrics call.
	Err error

	// Calls counts GetMetrics invocations.
	Calls int
}

// NewMetricsSource creates a new stub metrics source.
func NewMetricsSource() *MetricsSource {
	return &MetricsSource{Metrics: make(map[string]*domain.WalletMetrics)}
}

// AddMetrics registers metrics returned for a wallet.
func (s *MetricsSource) AddMetrics(address string, m *domain.WalletMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metrics[domain.NormalizeAddress(address)] = m
}

// GetMetrics returns the registered metrics for a wallet.
func (s *MetricsSource) GetMetrics(_ context.Context, address string, chainID int64) (*domain.WalletMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}

	m, ok := s.Metrics[domain.NormalizeAddress(address)]
	if !ok {
		return &domain.WalletMetrics{Address: domain.NormalizeAddress(address), ChainID: chainID}, nil
	}
	copy := *m
	return &copy, nil
}

var _ chain.MetricsSource = (*MetricsSource)(nil)
