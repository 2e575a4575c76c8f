package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrSourceClosed is returned by Runner.Run when the source ends before cancellation.
var ErrSourceClosed = errors.New("event source closed")

// Runner is the single foreground loop feeding the processor.
// Events are handled one at a time in arrival order.
type Runner struct {
	source    Source
	processor *Processor
	logger    zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    Source
	Processor *Processor
	Logger    zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:    opts.Source,
		processor: opts.Processor,
		logger:    opts.Logger.With().Str("component", "runner").Logger(),
	}
}

// Run consumes the source until ctx is done or the source closes.
// Cancellation returns nil; a closed source returns ErrSourceClosed.
func (r *Runner) Run(ctx context.Context) error {
	events, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}

	r.logger.Info().Msg("runner started")

	var handled int64
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Int64("events", handled).Msg("runner stopping")
			return nil

		case env, ok := <-events:
			if !ok {
				r.logger.Info().Int64("events", handled).Msg("event source closed")
				return ErrSourceClosed
			}
			r.processor.Handle(ctx, env)
			handled++
		}
	}
}
