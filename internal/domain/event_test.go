package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testMint = "4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi"
	testUser = "GgBaCs3NCBuZN12kCJgAW63ydqohFkHEdfdEXBPzLHq"
)

func TestIsSolanaAddress(t *testing.T) {
	assert.True(t, IsSolanaAddress(testMint))
	assert.False(t, IsSolanaAddress(""))
	assert.False(t, IsSolanaAddress("0OIl"), "not base58")
	assert.False(t, IsSolanaAddress("3mJr7AoUXx2Wqd"), "too short")
}

func TestEnvelopeValidate(t *testing.T) {
	tests := []struct {
		name string
		env  EventEnvelope
		ok   bool
	}{
		{"create", EventEnvelope{Kind: EventKindCreate, Create: &CreateEvent{Mint: testMint, User: testUser}}, true},
		{"trade", EventEnvelope{Kind: EventKindTrade, Trade: &TradeEvent{Mint: testMint, User: testUser}}, true},
		{"complete", EventEnvelope{Kind: EventKindComplete, Complete: &CompleteEvent{Mint: testMint}}, true},
		{"unknown kind", EventEnvelope{Kind: "migrate", Complete: &CompleteEvent{Mint: testMint}}, false},
		{"missing payload", EventEnvelope{Kind: EventKindTrade}, false},
		{"mismatched payload", EventEnvelope{Kind: EventKindTrade, Create: &CreateEvent{Mint: testMint, User: testUser}}, false},
		{"bad mint", EventEnvelope{Kind: EventKindComplete, Complete: &CompleteEvent{Mint: "nope"}}, false},
		{"placeholder mint", EventEnvelope{Kind: EventKindTrade, Trade: &TradeEvent{Mint: "AAA", User: testUser}}, false},
		{"missing user", EventEnvelope{Kind: EventKindCreate, Create: &CreateEvent{Mint: testMint}}, false},
		{"bad optional curve", EventEnvelope{Kind: EventKindCreate, Create: &CreateEvent{Mint: testMint, User: testUser, BondingCurve: "xyz"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrMalformedEvent), "got %v", err)
		})
	}
}

func TestEnvelopeMint(t *testing.T) {
	assert.Equal(t, "a", (&EventEnvelope{Kind: EventKindCreate, Create: &CreateEvent{Mint: "a"}}).Mint())
	assert.Equal(t, "b", (&EventEnvelope{Kind: EventKindTrade, Trade: &TradeEvent{Mint: "b"}}).Mint())
	assert.Equal(t, "c", (&EventEnvelope{Kind: EventKindComplete, Complete: &CompleteEvent{Mint: "c"}}).Mint())
	assert.Equal(t, "", (&EventEnvelope{Kind: EventKindTrade}).Mint())
}

func TestEventKindValid(t *testing.T) {
	assert.True(t, EventKindCreate.Valid())
	assert.False(t, EventKind("swap").Valid())
}

func TestNewTradeRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := &TradeEvent{Mint: "m", SolAmount: 5, TokenAmount: math.MaxUint64, IsBuy: false, User: "u", Timestamp: 1_700_000_000}

	r := NewTradeRecord(e, now)
	assert.Equal(t, "m", r.ContractAddress)
	assert.Equal(t, int64(5), r.SolAmount)
	assert.Equal(t, int64(math.MaxInt64), r.TokenAmount, "u64 amounts clamp to int64")
	assert.Equal(t, "u", r.Trader)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), r.CreatedAt)
	assert.Equal(t, -r.TokenAmount, r.SignedTokens())

	e.IsBuy = true
	e.Timestamp = 0
	r2 := NewTradeRecord(e, now)
	assert.Equal(t, now, r2.CreatedAt)
	assert.Equal(t, r2.TokenAmount, r2.SignedTokens())
	assert.NotEqual(t, r.ID, r2.ID)
}
