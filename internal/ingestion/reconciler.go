package ingestion

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-curve-indexer/internal/curve"
	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
	"solana-curve-indexer/internal/solana"
	"solana-curve-indexer/internal/state"
	"solana-curve-indexer/internal/storage"
)

// Reconcile outcomes, used as metric labels.
const (
	OutcomeGraduated = "graduated"
	OutcomeRefreshed = "refreshed"
	OutcomeMissing   = "missing"
	OutcomeInvalid   = "invalid"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Checked   int
	Graduated int
	Refreshed int
	Missing   int
	Invalid   int
}

// Reconciler catches up the state store with on-chain bonding-curve accounts,
// covering Complete events missed while the process was down.
type Reconciler struct {
	rpc         solana.RPCClient
	assets      storage.AssetStore
	states      *state.Store
	prices      PriceReader
	params      curve.Params
	batchSize   int
	concurrency int
	logger      zerolog.Logger
}

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	RPC         solana.RPCClient
	Assets      storage.AssetStore
	States      *state.Store
	Prices      PriceReader
	Params      *curve.Params
	BatchSize   int // Default: solana.MaxMultipleAccounts
	Concurrency int // Default: 4
	Logger      zerolog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	params := curve.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	batch := opts.BatchSize
	if batch <= 0 || batch > solana.MaxMultipleAccounts {
		batch = solana.MaxMultipleAccounts
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reconciler{
		rpc:         opts.RPC,
		assets:      opts.Assets,
		states:      opts.States,
		prices:      opts.Prices,
		params:      params,
		batchSize:   batch,
		concurrency: concurrency,
		logger:      opts.Logger.With().Str("component", "reconciler").Logger(),
	}
}

type reconcileTarget struct {
	mint         string
	bondingCurve string
}

// Run checks every non-graduated asset once. RPC failures abort the pass; the
// entries already updated stay updated.
func (r *Reconciler) Run(ctx context.Context) (ReconcileResult, error) {
	start := time.Now()

	var targets []reconcileTarget
	for _, e := range r.states.SnapshotAll() {
		if e.State.Graduated || e.State.BondingCurveAddress == "" {
			continue
		}
		targets = append(targets, reconcileTarget{mint: e.Key, bondingCurve: e.State.BondingCurveAddress})
	}

	var graduated, refreshed, missing, invalid atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for lo := 0; lo < len(targets); lo += r.batchSize {
		batch := targets[lo:min(lo+r.batchSize, len(targets))]
		g.Go(func() error {
			keys := make([]string, len(batch))
			for i, t := range batch {
				keys[i] = t.bondingCurve
			}
			infos, err := r.rpc.GetMultipleAccounts(gctx, keys)
			if err != nil {
				return fmt.Errorf("fetch bonding curves: %w", err)
			}
			for i, t := range batch {
				switch r.apply(gctx, t, infos[i]) {
				case OutcomeGraduated:
					graduated.Add(1)
				case OutcomeRefreshed:
					refreshed.Add(1)
				case OutcomeMissing:
					missing.Add(1)
				case OutcomeInvalid:
					invalid.Add(1)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	res := ReconcileResult{
		Checked:   len(targets),
		Graduated: int(graduated.Load()),
		Refreshed: int(refreshed.Load()),
		Missing:   int(missing.Load()),
		Invalid:   int(invalid.Load()),
	}
	if err != nil {
		return res, err
	}

	r.logger.Info().
		Int("checked", res.Checked).
		Int("graduated", res.Graduated).
		Int("refreshed", res.Refreshed).
		Int("missing", res.Missing).
		Int("invalid", res.Invalid).
		Dur("took", time.Since(start)).
		Msg("reconciliation done")
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, t reconcileTarget, info *solana.AccountInfo) string {
	log := r.logger.With().Str("mint", t.mint).Str("bonding_curve", t.bondingCurve).Logger()

	if info == nil {
		observability.RecordReconciled(OutcomeMissing)
		log.Debug().Msg("bonding curve account not found")
		return OutcomeMissing
	}
	acc, err := curve.DecodeAccount(info.Data)
	if err != nil {
		observability.RecordReconciled(OutcomeInvalid)
		log.Warn().Err(err).Msg("undecodable bonding curve account")
		return OutcomeInvalid
	}

	if acc.Complete {
		r.states.Update(t.mint, func(st *domain.CurveState) { st.Graduated = true })
		if err := r.assets.SetStatus(ctx, t.mint, domain.StatusGraduated); err != nil {
			log.Error().Err(err).Msg("persisting graduated status failed")
		}
		observability.RecordReconciled(OutcomeGraduated)
		log.Info().Msg("graduated while offline")
		return OutcomeGraduated
	}

	pct := r.params.Progress(acc.RealTokenReserves)
	price := r.prices.Read()
	r.states.Update(t.mint, func(st *domain.CurveState) {
		st.BondingCurvePercentage = pct
		if price.Sign() > 0 {
			mc := r.params.MarketCap(acc.VirtualSolReserves, acc.VirtualTokenReserves, price)
			st.MarketCap = &mc
		}
	})
	observability.RecordReconciled(OutcomeRefreshed)
	return OutcomeRefreshed
}
