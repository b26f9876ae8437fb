package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"proofscore/internal/domain"
	"proofscore/internal/storage"
)

// CreditCheckStore implements storage.CreditCheckStore using PostgreSQL.
type CreditCheckStore struct {
	pool *Pool
}

// NewCreditCheckStore creates a new CreditCheckStore.
func NewCreditCheckStore(pool *Pool) *CreditCheckStore {
	return &CreditCheckStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreditCheckStore = (*CreditCheckStore)(nil)

// Append adds a new audit row.
func (s *CreditCheckStore) Append(ctx context.Context, record *domain.CreditCheckRecord) error {
	if record == nil || record.CheckID == "" || record.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO credit_checks (
			check_id, wallet_address, chain_id, score, tier, risk, breakdown, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		record.CheckID, domain.NormalizeAddress(record.WalletAddress), record.ChainID,
		record.Score, string(record.Tier), string(record.Risk),
		record.Breakdown, record.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("append credit check: %w", err)
	}
	return nil
}

// GetByWallet retrieves all audit rows for a wallet on a chain,
// ordered by checked_at ASC.
func (s *CreditCheckStore) GetByWallet(ctx context.Context, walletAddress string, chainID int64) ([]*domain.CreditCheckRecord, error) {
	query := `
		SELECT check_id, wallet_address, chain_id, score, tier, risk, breakdown, checked_at
		FROM credit_checks
		WHERE wallet_address = $1 AND chain_id = $2
		ORDER BY checked_at ASC, check_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.NormalizeAddress(walletAddress), chainID)
	if err != nil {
		return nil, fmt.Errorf("get credit checks by wallet: %w", err)
	}
	defer rows.Close()

	return scanCreditChecks(rows)
}

// scanCreditChecks scans multiple rows into a slice of CreditCheckRecord.
func scanCreditChecks(rows pgx.Rows) ([]*domain.CreditCheckRecord, error) {
	var records []*domain.CreditCheckRecord

	for rows.Next() {
		var r domain.CreditCheckRecord
		var tier, risk string

		err := rows.Scan(
			&r.CheckID, &r.WalletAddress, &r.ChainID,
			&r.Score, &tier, &risk, &r.Breakdown, &r.CheckedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan credit check row: %w", err)
		}

		r.Tier = domain.CreditTier(tier)
		r.Risk = domain.CreditRisk(risk)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit check rows: %w", err)
	}

	return records, nil
}
