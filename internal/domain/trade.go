package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TradeRecord is one persisted buy or sell.
// Immutable once written; the ID is assigned when the record is produced so that a
// re-delivered record is recognized on insert.
type TradeRecord struct {
	ID              uuid.UUID `json:"id"`
	ContractAddress string    `json:"mint"`         // resolved to asset id at insert time
	SolAmount       int64     `json:"sol_amount"`   // lamports
	TokenAmount     int64     `json:"token_amount"` // raw token units
	IsBuy           bool      `json:"is_buy"`
	Trader          string    `json:"user"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewTradeRecord derives a TradeRecord from a trade event.
func NewTradeRecord(e *TradeEvent, now time.Time) TradeRecord {
	return TradeRecord{
		ID:              uuid.New(),
		ContractAddress: e.Mint,
		SolAmount:       clampInt64(e.SolAmount),
		TokenAmount:     clampInt64(e.TokenAmount),
		IsBuy:           e.IsBuy,
		Trader:          e.User,
		CreatedAt:       unixOr(e.Timestamp, now),
	}
}

// SignedTokens returns the token delta for the trader: positive on buy, negative on sell.
func (t TradeRecord) SignedTokens() int64 {
	if t.IsBuy {
		return t.TokenAmount
	}
	return -t.TokenAmount
}

// clampInt64 converts chain u64 amounts to the BIGINT column range.
func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
