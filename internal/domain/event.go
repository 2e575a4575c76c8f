package domain

import "time"

// EventKind identifies the pump.fun instruction an envelope carries.
type EventKind string

// Event kinds.
const (
	EventKindCreate   EventKind = "create"
	EventKindTrade    EventKind = "trade"
	EventKindComplete EventKind = "complete"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindCreate, EventKindTrade, EventKindComplete:
		return true
	}
	return false
}

// EventEnvelope is a decoded on-chain event as delivered by the upstream decoder.
// Exactly one payload matching Kind is set.
type EventEnvelope struct {
	Kind       EventKind      `json:"kind" validate:"required,oneof=create trade complete"`
	Create     *CreateEvent   `json:"create,omitempty" validate:"-"`
	Trade      *TradeEvent    `json:"trade,omitempty" validate:"-"`
	Complete   *CompleteEvent `json:"complete,omitempty" validate:"-"`
	ReceivedAt time.Time      `json:"-"` // set by the source on arrival
}

// CreateEvent announces a new token with its bonding curve.
type CreateEvent struct {
	Mint         string `json:"mint" validate:"required,solana_address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	URI          string `json:"uri"`
	BondingCurve string `json:"bonding_curve" validate:"omitempty,solana_address"` // derived from mint when empty
	User         string `json:"user" validate:"required,solana_address"`          // signer of the create instruction
	Creator      string `json:"creator" validate:"omitempty,solana_address"`      // creator field on newer program versions
	Timestamp    int64  `json:"timestamp"`                                        // unix seconds
}

// CreatorAddress returns the creator, falling back to the signer on older program versions.
func (e *CreateEvent) CreatorAddress() string {
	if e.Creator != "" {
		return e.Creator
	}
	return e.User
}

// TradeEvent is a buy or sell against a bonding curve, with post-trade reserves.
type TradeEvent struct {
	Mint                 string `json:"mint" validate:"required,solana_address"`
	SolAmount            uint64 `json:"sol_amount"`   // lamports
	TokenAmount          uint64 `json:"token_amount"` // raw units (6 decimals)
	IsBuy                bool   `json:"is_buy"`
	User                 string `json:"user" validate:"required,solana_address"`
	Timestamp            int64  `json:"timestamp"` // unix seconds
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
}

// CompleteEvent marks a bonding curve as completed (graduation).
type CompleteEvent struct {
	User         string `json:"user" validate:"omitempty,solana_address"`
	Mint         string `json:"mint" validate:"required,solana_address"`
	BondingCurve string `json:"bonding_curve" validate:"omitempty,solana_address"`
	Timestamp    int64  `json:"timestamp"`
}

// Mint returns the contract address the envelope refers to, or "" when the payload is missing.
func (e *EventEnvelope) Mint() string {
	switch e.Kind {
	case EventKindCreate:
		if e.Create != nil {
			return e.Create.Mint
		}
	case EventKindTrade:
		if e.Trade != nil {
			return e.Trade.Mint
		}
	case EventKindComplete:
		if e.Complete != nil {
			return e.Complete.Mint
		}
	}
	return ""
}

// unixOr converts unix seconds to time, using fallback for non-positive values.
func unixOr(sec int64, fallback time.Time) time.Time {
	if sec <= 0 {
		return fallback.UTC()
	}
	return time.Unix(sec, 0).UTC()
}
