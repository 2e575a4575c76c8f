package flush

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/state"
	"solana-curve-indexer/internal/storage"
)

// StateFlusher writes snapshots of the bonding state store to the asset table.
type StateFlusher struct {
	store        *state.Store
	assets       storage.AssetStore
	interval     time.Duration
	finalTimeout time.Duration
	logger       zerolog.Logger
}

// StateFlusherOptions configures a StateFlusher.
type StateFlusherOptions struct {
	Store        *state.Store
	Assets       storage.AssetStore
	Interval     time.Duration // Default: 10s
	FinalTimeout time.Duration // Default: 30s
	Logger       zerolog.Logger
}

// NewStateFlusher creates a state flusher.
func NewStateFlusher(opts StateFlusherOptions) *StateFlusher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	finalTimeout := opts.FinalTimeout
	if finalTimeout <= 0 {
		finalTimeout = DefaultFinalTimeout
	}
	return &StateFlusher{
		store:        opts.Store,
		assets:       opts.Assets,
		interval:     interval,
		finalTimeout: finalTimeout,
		logger:       opts.Logger.With().Str("component", "state_flusher").Logger(),
	}
}

var _ Flusher = (*StateFlusher)(nil)

// FlushOnce snapshots every entry and writes them in one transaction.
// An empty store performs no write.
func (f *StateFlusher) FlushOnce(ctx context.Context) (int, error) {
	snapshot := f.store.SnapshotAll()
	if len(snapshot) == 0 {
		return 0, nil
	}

	states := make([]domain.CurveState, len(snapshot))
	for i, e := range snapshot {
		states[i] = e.State
		states[i].ContractAddress = e.Key
	}

	start := time.Now()
	n, err := f.assets.UpdateCurveStates(ctx, states)
	record("state", n, start, err)
	if err != nil {
		f.logger.Error().Err(err).Int("entries", len(states)).Msg("state flush failed")
		return 0, fmt.Errorf("flush state: %w", err)
	}

	f.logger.Debug().Int("entries", len(states)).Int("updated", n).Dur("took", time.Since(start)).Msg("state flushed")
	return n, nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (f *StateFlusher) Run(ctx context.Context) error {
	return loop(ctx, f, f.interval, f.finalTimeout, f.logger)
}
