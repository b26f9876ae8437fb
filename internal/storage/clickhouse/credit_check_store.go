package clickhouse

import (
	"context"
	"fmt"
	"time"

	"proofscore/internal/domain"
	"proofscore/internal/storage"
)

// CreditCheckStore implements storage.CreditCheckStore using ClickHouse.
// MergeTree append-only semantics match the ledger contract: rows are
// inserted once and never updated.
type CreditCheckStore struct {
	conn *Conn
}

// NewCreditCheckStore creates a new CreditCheckStore.
func NewCreditCheckStore(conn *Conn) *CreditCheckStore {
	return &CreditCheckStore{conn: conn}
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		record.CheckID, domain.NormalizeAddress(record.WalletAddress), record.ChainID,
		int32(record.Score), string(record.Tier), string(record.Risk),
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
		WHERE wallet_address = ? AND chain_id = ?
		ORDER BY checked_at ASC, check_id ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.NormalizeAddress(walletAddress), chainID)
	if err != nil {
		return nil, fmt.Errorf("get credit checks by wallet: %w", err)
	}
	defer rows.Close()

	var records []*domain.CreditCheckRecord
	for rows.Next() {
		var r domain.CreditCheckRecord
		var score int32
		var tier, risk string
		var checkedAt time.Time

		err := rows.Scan(
			&r.CheckID, &r.WalletAddress, &r.ChainID,
			&score, &tier, &risk, &r.Breakdown, &checkedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan credit check row: %w", err)
		}

		r.Score = int(score)
		r.Tier = domain.CreditTier(tier)
		r.Risk = domain.CreditRisk(risk)
		r.CheckedAt = checkedAt
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit check rows: %w", err)
	}

	return records, nil
}
