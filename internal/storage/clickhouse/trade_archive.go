package clickhouse

import (
	"context"
	"fmt"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

// TradeArchive implements storage.TradeArchive on the trade_archive table.
type TradeArchive struct {
	conn *Conn
}

// NewTradeArchive creates a new TradeArchive.
func NewTradeArchive(conn *Conn) *TradeArchive {
	return &TradeArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchive)(nil)

// Append writes trades in one native batch. Re-appended ids are collapsed by
// ReplacingMergeTree on merge.
func (a *TradeArchive) Append(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO trade_archive (
			id, contract_address, sol_amount, token_amount, is_buy, trader, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		if err := batch.Append(
			t.ID, t.ContractAddress, t.SolAmount, t.TokenAmount, t.IsBuy, t.Trader, t.CreatedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByContract returns the archived trades of one mint, deduplicated, oldest first.
func (a *TradeArchive) GetByContract(ctx context.Context, contractAddress string) ([]domain.TradeRecord, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT id, contract_address, sol_amount, token_amount, is_buy, trader, created_at
		FROM trade_archive FINAL
		WHERE contract_address = ?
		ORDER BY created_at, id
	`, contractAddress)
	if err != nil {
		return nil, fmt.Errorf("query trade_archive: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.ID, &t.ContractAddress, &t.SolAmount, &t.TokenAmount, &t.IsBuy, &t.Trader, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade_archive: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
