package flush

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
	"solana-curve-indexer/internal/tradebuf"
)

// TradeFlusher drains the trade buffer into the trade table.
type TradeFlusher struct {
	buffer       *tradebuf.Buffer
	trades       storage.TradeStore
	archive      storage.TradeArchive
	interval     time.Duration
	finalTimeout time.Duration
	logger       zerolog.Logger
}

// TradeFlusherOptions configures a TradeFlusher.
type TradeFlusherOptions struct {
	Buffer *tradebuf.Buffer
	Trades storage.TradeStore
	// Archive optionally receives every row the trade store accepted.
	Archive      storage.TradeArchive
	Interval     time.Duration // Default: 10s
	FinalTimeout time.Duration // Default: 30s
	Logger       zerolog.Logger
}

// NewTradeFlusher creates a trade flusher.
func NewTradeFlusher(opts TradeFlusherOptions) *TradeFlusher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	finalTimeout := opts.FinalTimeout
	if finalTimeout <= 0 {
		finalTimeout = DefaultFinalTimeout
	}
	return &TradeFlusher{
		buffer:       opts.Buffer,
		trades:       opts.Trades,
		archive:      opts.Archive,
		interval:     interval,
		finalTimeout: finalTimeout,
		logger:       opts.Logger.With().Str("component", "trade_flusher").Logger(),
	}
}

var _ Flusher = (*TradeFlusher)(nil)

// FlushOnce drains the buffer and writes it in one batch. An empty buffer performs no
// write. On failure the batch is logged and discarded, not requeued.
func (f *TradeFlusher) FlushOnce(ctx context.Context) (int, error) {
	batch := f.buffer.Drain()
	if len(batch) == 0 {
		return 0, nil
	}

	start := time.Now()
	inserted, err := f.trades.InsertBatch(ctx, batch)
	record("trade", len(inserted), start, err)
	if err != nil {
		f.logger.Error().Err(err).Int("discarded", len(batch)).Msg("trade flush failed")
		return 0, fmt.Errorf("flush trades: %w", err)
	}

	if skipped := len(batch) - len(inserted); skipped > 0 {
		f.logger.Debug().Int("skipped", skipped).Msg("trades skipped for unknown asset or duplicate id")
	}
	f.logger.Debug().Int("rows", len(inserted)).Dur("took", time.Since(start)).Msg("trades flushed")

	f.archiveInserted(ctx, batch, inserted)
	return len(inserted), nil
}

// archiveInserted appends the accepted subset of batch to the archive. Archive
// failures are logged and never fail the flush.
func (f *TradeFlusher) archiveInserted(ctx context.Context, batch []domain.TradeRecord, inserted []uuid.UUID) {
	if f.archive == nil || len(inserted) == 0 {
		return
	}

	accepted := make(map[uuid.UUID]struct{}, len(inserted))
	for _, id := range inserted {
		accepted[id] = struct{}{}
	}
	rows := make([]domain.TradeRecord, 0, len(inserted))
	for _, t := range batch {
		if _, ok := accepted[t.ID]; ok {
			rows = append(rows, t)
			delete(accepted, t.ID)
		}
	}

	start := time.Now()
	err := f.archive.Append(ctx, rows)
	record("archive", len(rows), start, err)
	if err != nil {
		f.logger.Error().Err(err).Int("rows", len(rows)).Msg("trade archive append failed")
	}
}

// Run flushes every interval until ctx is done, then flushes once more.
func (f *TradeFlusher) Run(ctx context.Context) error {
	return loop(ctx, f, f.interval, f.finalTimeout, f.logger)
}
