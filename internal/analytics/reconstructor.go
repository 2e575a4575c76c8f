// Package analytics rebuilds the per-asset read model from the durable trade ledger.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-curve-indexer/internal/curve"
	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
	"solana-curve-indexer/internal/storage"
)

// TopHolders is the number of largest balances summed for the concentration figure.
const TopHolders = 10

// Reconstructor computes AssetAnalytics for every asset on each call.
// It reads durable storage only and never touches the in-memory state.
type Reconstructor struct {
	assets storage.AssetStore
	trades storage.TradeStore
	params curve.Params
	logger zerolog.Logger
}

// ReconstructorOptions configures a Reconstructor.
type ReconstructorOptions struct {
	Assets storage.AssetStore
	Trades storage.TradeStore
	Params *curve.Params // Default: curve.DefaultParams()
	Logger zerolog.Logger
}

// NewReconstructor creates a reconstructor.
func NewReconstructor(opts ReconstructorOptions) *Reconstructor {
	params := curve.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	return &Reconstructor{
		assets: opts.Assets,
		trades: opts.Trades,
		params: params,
		logger: opts.Logger.With().Str("component", "analytics").Logger(),
	}
}

// ledger is the fold of all trades of one asset.
type ledger struct {
	volumeLamports decimal.Decimal
	net            map[string]int64 // trader -> net raw tokens
	trades         int
}

// ComputeAll loads every asset and trade and returns the analytics view ordered by
// asset creation time, newest first.
func (r *Reconstructor) ComputeAll(ctx context.Context) ([]domain.AssetAnalytics, error) {
	start := time.Now()
	defer func() { observability.RecordAnalytics(time.Since(start).Seconds()) }()

	assets, err := r.assets.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	trades, err := r.trades.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	ledgers := fold(trades)

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})

	out := make([]domain.AssetAnalytics, 0, len(assets))
	for _, a := range assets {
		out = append(out, r.build(a, ledgers[a.ContractAddress]))
	}

	r.logger.Debug().
		Int("assets", len(assets)).
		Int("trades", len(trades)).
		Dur("took", time.Since(start)).
		Msg("analytics computed")
	return out, nil
}

// fold accumulates volume and net balances per asset in one pass.
func fold(trades []domain.TradeRecord) map[string]*ledger {
	ledgers := make(map[string]*ledger)
	for _, t := range trades {
		l, ok := ledgers[t.ContractAddress]
		if !ok {
			l = &ledger{net: make(map[string]int64)}
			ledgers[t.ContractAddress] = l
		}
		l.volumeLamports = l.volumeLamports.Add(decimal.NewFromInt(t.SolAmount))
		l.net[t.Trader] += t.SignedTokens()
		l.trades++
	}
	return ledgers
}

// holdings returns the per-trader balances, largest first. Ties order by trader.
func (l *ledger) holdings(mint string) []domain.Holding {
	out := make([]domain.Holding, 0, len(l.net))
	for trader, n := range l.net {
		out = append(out, domain.Holding{ContractAddress: mint, Trader: trader, NetTokens: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetTokens != out[j].NetTokens {
			return out[i].NetTokens > out[j].NetTokens
		}
		return out[i].Trader < out[j].Trader
	})
	return out
}

func (r *Reconstructor) build(a *domain.Asset, l *ledger) domain.AssetAnalytics {
	v := domain.AssetAnalytics{
		ID:                     a.ID.String(),
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
		Name:                   a.Name,
		Ticker:                 a.Ticker,
		ContractAddress:        a.ContractAddress,
		BondingCurvePercentage: a.BondingCurvePercentage,
		Status:                 a.Status,
		MarketCap:              a.MarketCap,
		URI:                    a.URI,
		BondingCurveAddress:    a.BondingCurveAddress,
		CreatorAddress:         a.CreatorAddress,
	}
	if l == nil || l.trades == 0 {
		return v
	}

	holdings := l.holdings(a.ContractAddress)
	top := decimal.Zero
	for i, h := range holdings {
		if h.NetTokens > 0 {
			v.HolderCount++
		}
		if i < TopHolders {
			top = top.Add(decimal.NewFromInt(h.NetTokens))
		}
	}

	v.Volume = l.volumeLamports.Div(decimal.NewFromInt(r.params.LamportsPerSOL)).InexactFloat64()
	v.FundsPercentByTop10 = r.supplyPercent(top)
	v.CreatorPercent = r.supplyPercent(decimal.NewFromInt(l.net[a.CreatorAddress]))
	v.Status = domain.ResolveStatus(a.Status, a.MarketCap)
	return v
}

// supplyPercent converts raw token units into a percentage of total supply, floored at 0.
func (r *Reconstructor) supplyPercent(raw decimal.Decimal) float64 {
	if raw.Sign() <= 0 || r.params.TotalSupply <= 0 {
		return 0
	}
	return raw.
		Shift(-r.params.TokenDecimals).
		Div(decimal.NewFromInt(r.params.TotalSupply)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
}
