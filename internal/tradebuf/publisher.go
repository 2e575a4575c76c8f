package tradebuf

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
)

// Publisher hands trade records from the event loop to the Queue through one
// worker. Enqueue never blocks: when the worker backlog is full, or a publish fails,
// the record goes straight into the fallback buffer.
type Publisher struct {
	queue          Queue
	fallback       *Buffer
	pending        chan domain.TradeRecord
	publishTimeout time.Duration
	logger         zerolog.Logger
}

// PublisherOptions configures Publisher.
type PublisherOptions struct {
	Queue    Queue
	Fallback *Buffer
	// Backlog is the capacity of the in-process hand-off channel.
	Backlog        int
	PublishTimeout time.Duration
	Logger         zerolog.Logger
}

// NewPublisher creates a publisher. Call Run to start its worker.
func NewPublisher(opts PublisherOptions) *Publisher {
	if opts.Backlog <= 0 {
		opts.Backlog = 4096
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 2 * time.Second
	}
	return &Publisher{
		queue:          opts.Queue,
		fallback:       opts.Fallback,
		pending:        make(chan domain.TradeRecord, opts.Backlog),
		publishTimeout: opts.PublishTimeout,
		logger:         opts.Logger.With().Str("component", "publisher").Logger(),
	}
}

// Enqueue schedules rec for publishing.
func (p *Publisher) Enqueue(rec domain.TradeRecord) {
	select {
	case p.pending <- rec:
	default:
		observability.RecordPublishFallback()
		p.logger.Warn().Str("mint", rec.ContractAddress).Msg("publisher backlog full, buffering locally")
		p.fallback.Enqueue(rec)
	}
}

// Run publishes until ctx is done, then hands any backlog to the fallback buffer.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drainBacklog()
			return nil
		case rec := <-p.pending:
			p.publish(ctx, rec)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, rec domain.TradeRecord) {
	pctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	err := p.queue.Publish(pctx, rec)
	cancel()
	if err != nil {
		observability.RecordPublishFallback()
		p.logger.Warn().Err(err).Str("mint", rec.ContractAddress).Msg("publish failed, buffering locally")
		p.fallback.Enqueue(rec)
	}
}

func (p *Publisher) drainBacklog() {
	for {
		select {
		case rec := <-p.pending:
			p.fallback.Enqueue(rec)
		default:
			return
		}
	}
}
