package tradebuf

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Relay moves records delivered by a Queue into a Buffer.
type Relay struct {
	queue  Queue
	buffer *Buffer
	logger zerolog.Logger
}

// NewRelay creates a relay.
func NewRelay(queue Queue, buffer *Buffer, logger zerolog.Logger) *Relay {
	return &Relay{
		queue:  queue,
		buffer: buffer,
		logger: logger.With().Str("component", "relay").Logger(),
	}
}

// Subscribe registers with the queue and returns a function that relays until the
// subscription ends. Splitting the two lets callers subscribe before producers start.
func (r *Relay) Subscribe(ctx context.Context) (func() error, error) {
	ch, err := r.queue.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay subscribe: %w", err)
	}
	return func() error {
		for rec := range ch {
			r.buffer.Enqueue(rec)
		}
		r.logger.Debug().Msg("relay subscription ended")
		return nil
	}, nil
}

// Run subscribes and relays until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	loop, err := r.Subscribe(ctx)
	if err != nil {
		return err
	}
	return loop()
}
