package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage/memory"
)

const tokenUnit = 1_000_000 // raw units per whole token

func ptr[T any](v T) *T { return &v }

type fixture struct {
	assets *memory.AssetStore
	trades *memory.TradeStore
	clock  time.Time
}

func newFixture() *fixture {
	assets := memory.NewAssetStore()
	return &fixture{
		assets: assets,
		trades: memory.NewTradeStore(assets),
		clock:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) asset(t *testing.T, mint, creator string, status domain.LifecycleStatus, marketCap int64) *domain.Asset {
	t.Helper()
	f.clock = f.clock.Add(time.Minute)
	a := &domain.Asset{
		ID:              uuid.New(),
		CreatedAt:       f.clock,
		UpdatedAt:       f.clock,
		ContractAddress: mint,
		CreatorAddress:  creator,
		Status:          status,
		MarketCap:       ptr(marketCap),
	}
	require.NoError(t, f.assets.Insert(context.Background(), a))
	return a
}

func (f *fixture) trade(t *testing.T, mint, trader string, lamports, tokens int64, buy bool) {
	t.Helper()
	f.clock = f.clock.Add(time.Second)
	_, err := f.trades.InsertBatch(context.Background(), []domain.TradeRecord{{
		ID:              uuid.New(),
		ContractAddress: mint,
		SolAmount:       lamports,
		TokenAmount:     tokens,
		IsBuy:           buy,
		Trader:          trader,
		CreatedAt:       f.clock,
	}})
	require.NoError(t, err)
}

func (f *fixture) reconstructor() *Reconstructor {
	return NewReconstructor(ReconstructorOptions{Assets: f.assets, Trades: f.trades, Logger: zerolog.Nop()})
}

func TestComputeAll_BuySellScenario(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "creator", domain.StatusNewlyLaunched, 30_000)

	f.trade(t, "AAA", "u1", 1_000_000_000, 10_000_000*tokenUnit, true)
	f.trade(t, "AAA", "creator", 500_000_000, 50_000_000*tokenUnit, true)
	f.trade(t, "AAA", "u1", 250_000_000, 4_000_000*tokenUnit, false)

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.InDelta(t, 1.75, a.Volume, 1e-9)
	assert.Equal(t, 2, a.HolderCount)
	// (6M + 50M) / 1B
	assert.InDelta(t, 5.6, a.FundsPercentByTop10, 1e-9)
	assert.InDelta(t, 5.0, a.CreatorPercent, 1e-9)
	assert.Equal(t, domain.StatusGraduating, a.Status)
}

func TestComputeAll_TopTenOfEleven(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "nobody", domain.StatusNewlyLaunched, 0)

	// trader i holds i million tokens; the smallest (1M) falls outside the top 10
	for i := 1; i <= 11; i++ {
		f.trade(t, "AAA", fmt.Sprintf("trader-%02d", i), 1, int64(i)*1_000_000*tokenUnit, true)
	}

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	// 2M + ... + 11M = 65M of 1B supply
	assert.InDelta(t, 6.5, got[0].FundsPercentByTop10, 1e-9)
	assert.Equal(t, 11, got[0].HolderCount)
	assert.Equal(t, 0.0, got[0].CreatorPercent)
}

func TestComputeAll_NegativeBalancesFloorAtZero(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "creator", domain.StatusNewlyLaunched, 0)

	// sells without prior buys leave net negative balances
	f.trade(t, "AAA", "creator", 1, 5*tokenUnit, false)
	f.trade(t, "AAA", "u1", 1, 3*tokenUnit, false)

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got[0].HolderCount)
	assert.Equal(t, 0.0, got[0].FundsPercentByTop10)
	assert.Equal(t, 0.0, got[0].CreatorPercent)
}

func TestComputeAll_SaturatedAmountsDoNotWrap(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "creator", domain.StatusNewlyLaunched, 0)

	f.trade(t, "AAA", "u1", math.MaxInt64, math.MaxInt64, true)
	f.trade(t, "AAA", "u2", math.MaxInt64, math.MaxInt64, true)

	out, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)

	want := 2 * float64(math.MaxInt64) / 1e9
	assert.InEpsilon(t, want, out[0].Volume, 1e-9)
	assert.Greater(t, out[0].FundsPercentByTop10, 0.0)
	assert.Equal(t, 2, out[0].HolderCount)
}

func TestLedgerHoldings(t *testing.T) {
	l := fold([]domain.TradeRecord{
		{ContractAddress: "AAA", Trader: "b", TokenAmount: 5, IsBuy: true},
		{ContractAddress: "AAA", Trader: "a", TokenAmount: 5, IsBuy: true},
		{ContractAddress: "AAA", Trader: "c", TokenAmount: 9, IsBuy: true},
		{ContractAddress: "AAA", Trader: "c", TokenAmount: 2, IsBuy: false},
		{ContractAddress: "AAA", Trader: "d", TokenAmount: 3, IsBuy: false},
	})["AAA"]
	require.NotNil(t, l)

	assert.Equal(t, []domain.Holding{
		{ContractAddress: "AAA", Trader: "c", NetTokens: 7},
		{ContractAddress: "AAA", Trader: "a", NetTokens: 5},
		{ContractAddress: "AAA", Trader: "b", NetTokens: 5},
		{ContractAddress: "AAA", Trader: "d", NetTokens: -3},
	}, l.holdings("AAA"))
}

func TestComputeAll_ZeroTradeAssetKeepsPersistedStatus(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "creator", domain.StatusNewlyLaunched, 90_000)

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, domain.StatusNewlyLaunched, a.Status, "status is only derived for assets with trades")
	assert.Equal(t, 0.0, a.Volume)
	assert.Equal(t, 0, a.HolderCount)
	assert.Equal(t, 0.0, a.FundsPercentByTop10)
	assert.Equal(t, int64(90_000), *a.MarketCap)
}

func TestComputeAll_GraduatedIsSticky(t *testing.T) {
	f := newFixture()
	f.asset(t, "AAA", "creator", domain.StatusGraduated, 100)
	f.trade(t, "AAA", "u1", 1, tokenUnit, true)

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGraduated, got[0].Status)
}

func TestComputeAll_StatusThresholds(t *testing.T) {
	tests := []struct {
		marketCap int64
		want      domain.LifecycleStatus
	}{
		{24_999, domain.StatusNewlyLaunched},
		{25_000, domain.StatusGraduating},
		{62_500, domain.StatusGraduating},
		{62_501, domain.StatusGraduated},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.marketCap), func(t *testing.T) {
			f := newFixture()
			f.asset(t, "AAA", "creator", domain.StatusNewlyLaunched, tt.marketCap)
			f.trade(t, "AAA", "u1", 1, tokenUnit, true)

			got, err := f.reconstructor().ComputeAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[0].Status)
		})
	}
}

func TestComputeAll_NewestFirst(t *testing.T) {
	f := newFixture()
	f.asset(t, "OLD", "c", domain.StatusNewlyLaunched, 0)
	f.asset(t, "MID", "c", domain.StatusNewlyLaunched, 0)
	f.asset(t, "NEW", "c", domain.StatusNewlyLaunched, 0)
	f.trade(t, "MID", "u1", 1, 1, true)

	got, err := f.reconstructor().ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "NEW", got[0].ContractAddress)
	assert.Equal(t, "MID", got[1].ContractAddress)
	assert.Equal(t, "OLD", got[2].ContractAddress)
}

type brokenTrades struct{}

func (brokenTrades) InsertBatch(context.Context, []domain.TradeRecord) ([]uuid.UUID, error) {
	return nil, nil
}

func (brokenTrades) GetAll(context.Context) ([]domain.TradeRecord, error) {
	return nil, errors.New("db down")
}

func TestComputeAll_StorageFailure(t *testing.T) {
	r := NewReconstructor(ReconstructorOptions{Assets: memory.NewAssetStore(), Trades: brokenTrades{}, Logger: zerolog.Nop()})
	_, err := r.ComputeAll(context.Background())
	assert.Error(t, err)
}
