package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBatch writes all trades with one INSERT ... SELECT over parallel arrays.
// The join against asset resolves asset_id and silently drops rows whose mint is
// unknown; ON CONFLICT drops re-delivered ids.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.TradeRecord) (inserted []uuid.UUID, err error) {
	if len(trades) == 0 {
		return nil, nil
	}
	defer observe("trade_insert_batch", time.Now(), &err)

	var (
		ids     = make([]string, len(trades))
		mints   = make([]string, len(trades))
		sols    = make([]int64, len(trades))
		tokens  = make([]int64, len(trades))
		buys    = make([]bool, len(trades))
		traders = make([]string, len(trades))
		times   = make([]time.Time, len(trades))
	)
	for i, t := range trades {
		if t.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: trade %d has no id", storage.ErrInvalidInput, i)
		}
		ids[i] = t.ID.String()
		mints[i] = t.ContractAddress
		sols[i] = t.SolAmount
		tokens[i] = t.TokenAmount
		buys[i] = t.IsBuy
		traders[i] = t.Trader
		times[i] = t.CreatedAt
	}

	rows, err := s.pool.Query(ctx, `
		INSERT INTO trade (id, sol_amount, token_amount, is_buy, user_address, created_at, updated_at, asset_id)
		SELECT u.id, u.sol_amount, u.token_amount, u.is_buy, u.user_address, u.created_at, now(), a.id
		FROM UNNEST(
			$1::uuid[], $2::text[], $3::bigint[], $4::bigint[], $5::boolean[], $6::text[], $7::timestamptz[]
		) AS u(id, contract_address, sol_amount, token_amount, is_buy, user_address, created_at)
		JOIN asset a ON a.contract_address = u.contract_address
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`, ids, mints, sols, tokens, buys, traders, times)
	if err != nil {
		return nil, fmt.Errorf("insert trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan inserted id: %w", err)
		}
		inserted = append(inserted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insert trades: %w", err)
	}
	return inserted, nil
}

// GetAll retrieves every trade ordered by created_at, id.
func (s *TradeStore) GetAll(ctx context.Context) (trades []domain.TradeRecord, err error) {
	defer observe("trade_get_all", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT t.id, a.contract_address, t.sol_amount, t.token_amount, t.is_buy, t.user_address, t.created_at
		FROM trade t
		JOIN asset a ON a.id = t.asset_id
		ORDER BY t.created_at, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.ID, &t.ContractAddress, &t.SolAmount, &t.TokenAmount, &t.IsBuy, &t.Trader, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}
