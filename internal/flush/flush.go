// Package flush moves buffered trades and in-memory curve state into durable storage
// on a fixed interval.
package flush

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/observability"
)

// DefaultInterval is the period between flushes.
const DefaultInterval = 10 * time.Second

// DefaultFinalTimeout bounds the flush performed after cancellation.
const DefaultFinalTimeout = 30 * time.Second

// Flusher is one periodic persistence job.
type Flusher interface {
	FlushOnce(ctx context.Context) (int, error)
}

// loop calls f every interval and once more after ctx is done, on a context that
// survives the cancellation for at most finalTimeout.
func loop(ctx context.Context, f Flusher, interval, finalTimeout time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("flusher started")

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalTimeout)
			n, err := f.FlushOnce(fctx)
			cancel()
			if err == nil {
				logger.Info().Int("rows", n).Msg("final flush done")
			}
			return nil
		case <-ticker.C:
			_, _ = f.FlushOnce(ctx)
		}
	}
}

func record(name string, rows int, start time.Time, err error) {
	observability.RecordFlush(name, rows, time.Since(start).Seconds(), err)
}
