// Package tradebuf buffers trade records between the event path and the trade flusher.
package tradebuf

import (
	"sync"

	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
)

// DefaultHighWater is the buffer length that triggers a warning.
const DefaultHighWater = 50_000

// Buffer is an unbounded FIFO of trade records. Enqueue never blocks on capacity;
// growth past the high-water mark is logged once per crossing.
type Buffer struct {
	mu        sync.Mutex
	items     []domain.TradeRecord
	highWater int
	above     bool
	logger    zerolog.Logger
}

// NewBuffer creates a buffer. highWater <= 0 uses DefaultHighWater.
func NewBuffer(highWater int, logger zerolog.Logger) *Buffer {
	if highWater <= 0 {
		highWater = DefaultHighWater
	}
	return &Buffer{
		highWater: highWater,
		logger:    logger.With().Str("component", "tradebuf").Logger(),
	}
}

// Enqueue appends records.
func (b *Buffer) Enqueue(recs ...domain.TradeRecord) {
	if len(recs) == 0 {
		return
	}
	b.mu.Lock()
	b.items = append(b.items, recs...)
	n := len(b.items)
	crossed := !b.above && n >= b.highWater
	if crossed {
		b.above = true
	}
	b.mu.Unlock()

	observability.UpdateTradeBufferSize(n)
	if crossed {
		observability.RecordTradeBufferHighWater()
		b.logger.Warn().Int("size", n).Int("high_water", b.highWater).Msg("trade buffer above high-water mark")
	}
}

// Drain removes and returns everything buffered. Swap and clear happen under one
// lock so records enqueued concurrently land either in this batch or the next.
func (b *Buffer) Drain() []domain.TradeRecord {
	b.mu.Lock()
	out := b.items
	b.items = nil
	b.above = false
	b.mu.Unlock()

	observability.UpdateTradeBufferSize(0)
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
