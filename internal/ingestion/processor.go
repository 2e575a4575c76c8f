package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-curve-indexer/internal/curve"
	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
	"solana-curve-indexer/internal/state"
	"solana-curve-indexer/internal/storage"
)

// PriceReader returns the last known quote price in USD.
type PriceReader interface {
	Read() decimal.Decimal
}

// TradeSink accepts trade records without blocking.
type TradeSink interface {
	Enqueue(rec domain.TradeRecord)
}

// Processor applies events to the bonding state store.
// Create and Complete are persisted immediately; trades are handed to the sink.
type Processor struct {
	assets         storage.AssetStore
	states         *state.Store
	prices         PriceReader
	trades         TradeSink
	params         curve.Params
	persistTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	Assets storage.AssetStore
	States *state.Store
	Prices PriceReader
	Trades TradeSink
	Params *curve.Params // Default: curve.DefaultParams()
	// PersistTimeout bounds the synchronous asset writes of Create and Complete.
	PersistTimeout time.Duration // Default: 5s
	Logger         zerolog.Logger
}

// NewProcessor creates an event processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	params := curve.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}
	return &Processor{
		assets:         opts.Assets,
		states:         opts.States,
		prices:         opts.Prices,
		trades:         opts.Trades,
		params:         params,
		persistTimeout: persistTimeout,
		logger:         opts.Logger.With().Str("component", "processor").Logger(),
		now:            time.Now,
	}
}

// Handle applies one envelope. Failures are logged and counted, never returned.
func (p *Processor) Handle(ctx context.Context, env domain.EventEnvelope) {
	start := time.Now()
	kind := string(env.Kind)

	if err := env.Validate(); err != nil {
		if !env.Kind.Valid() {
			kind = "unknown"
		}
		observability.RecordEventDropped(kind, observability.DropMalformed)
		p.logger.Warn().Err(err).Str("kind", kind).Str("mint", env.Mint()).Msg("dropping malformed event")
		return
	}

	var applied bool
	switch env.Kind {
	case domain.EventKindCreate:
		applied = p.handleCreate(ctx, env.Create)
	case domain.EventKindTrade:
		applied = p.handleTrade(env.Trade)
	case domain.EventKindComplete:
		applied = p.handleComplete(ctx, env.Complete)
	}
	if applied {
		observability.RecordEventProcessed(kind, time.Since(start).Seconds())
	}
}

func (p *Processor) handleCreate(ctx context.Context, e *domain.CreateEvent) bool {
	log := p.logger.With().Str("kind", "create").Str("mint", e.Mint).Logger()

	bondingCurve := e.BondingCurve
	if bondingCurve == "" {
		derived, err := curve.DeriveBondingCurveAddress(e.Mint)
		if err != nil {
			observability.RecordEventDropped(string(domain.EventKindCreate), observability.DropMalformed)
			log.Warn().Err(err).Msg("dropping create without derivable bonding curve")
			return false
		}
		bondingCurve = derived
	}

	asset := domain.NewAsset(e, bondingCurve, p.now())

	pctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
	err := p.assets.Insert(pctx, asset)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		log.Debug().Msg("asset already persisted")
	default:
		observability.RecordEventDropped(string(domain.EventKindCreate), observability.DropPersistFailed)
		log.Error().Err(err).Msg("persisting asset failed, not tracking")
		return false
	}

	if p.states.Insert(asset.CurveState()) {
		observability.UpdateAssetsTracked(p.states.Len())
		log.Info().Str("name", e.Name).Str("ticker", e.Symbol).Str("bonding_curve", bondingCurve).Msg("asset created")
	}
	return true
}

func (p *Processor) handleTrade(e *domain.TradeEvent) bool {
	pct := p.params.Progress(e.RealTokenReserves)
	price := p.prices.Read()

	var mc int64
	havePrice := price.Sign() > 0
	if havePrice {
		mc = p.params.MarketCap(e.VirtualSolReserves, e.VirtualTokenReserves, price)
	}

	ok := p.states.Update(e.Mint, func(st *domain.CurveState) {
		st.BondingCurvePercentage = pct
		if havePrice {
			st.MarketCap = &mc
		}
	})
	if !ok {
		observability.RecordEventDropped(string(domain.EventKindTrade), observability.DropUnknownAsset)
		p.logger.Warn().Str("kind", "trade").Str("mint", e.Mint).Msg("dropping trade for unknown asset")
		return false
	}

	p.trades.Enqueue(domain.NewTradeRecord(e, p.now()))

	p.logger.Debug().
		Str("mint", e.Mint).
		Bool("is_buy", e.IsBuy).
		Uint64("sol_amount", e.SolAmount).
		Int("progress", pct).
		Int64("market_cap", mc).
		Msg("trade applied")
	return true
}

func (p *Processor) handleComplete(ctx context.Context, e *domain.CompleteEvent) bool {
	log := p.logger.With().Str("kind", "complete").Str("mint", e.Mint).Logger()

	ok := p.states.Update(e.Mint, func(st *domain.CurveState) {
		st.Graduated = true
	})
	if !ok {
		observability.RecordEventDropped(string(domain.EventKindComplete), observability.DropUnknownAsset)
		log.Warn().Msg("dropping complete for unknown asset")
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
	err := p.assets.SetStatus(pctx, e.Mint, domain.StatusGraduated)
	cancel()
	if err != nil {
		// the next state flush rewrites the status from the Graduated flag
		log.Error().Err(err).Msg("persisting graduated status failed")
		return true
	}

	log.Info().Msg("asset graduated")
	return true
}
