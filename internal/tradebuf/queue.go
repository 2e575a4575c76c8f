package tradebuf

import (
	"context"
	"errors"
	"sync"

	"solana-curve-indexer/internal/domain"
)

// Queue errors.
var (
	ErrQueueClosed   = errors.New("trade queue closed")
	ErrNoSubscribers = errors.New("trade queue has no subscribers")
)

// Queue is the at-least-once transport between trade producers and the buffer.
type Queue interface {
	// Publish returns ErrNoSubscribers when nobody would receive rec.
	Publish(ctx context.Context, rec domain.TradeRecord) error
	// Subscribe returns a channel of delivered records. It is closed when ctx is
	// done or the queue is closed.
	Subscribe(ctx context.Context) (<-chan domain.TradeRecord, error)
	Close() error
}

// MemoryQueue is an in-process Queue fanning each record out to all subscribers.
// Used when no queue backend is configured and in tests.
type MemoryQueue struct {
	mu     sync.RWMutex
	subs   map[chan domain.TradeRecord]struct{}
	closed bool
	size   int
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a queue whose subscriber channels hold size records.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{subs: make(map[chan domain.TradeRecord]struct{}), size: size}
}

// Publish delivers rec to every subscriber, blocking while a subscriber is full.
func (q *MemoryQueue) Publish(ctx context.Context, rec domain.TradeRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if len(q.subs) == 0 {
		return ErrNoSubscribers
	}
	for ch := range q.subs {
		select {
		case ch <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscriber.
func (q *MemoryQueue) Subscribe(ctx context.Context) (<-chan domain.TradeRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	ch := make(chan domain.TradeRecord, q.size)
	q.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		q.mu.Lock()
		if _, ok := q.subs[ch]; ok {
			delete(q.subs, ch)
			close(ch)
		}
		q.mu.Unlock()
	}()
	return ch, nil
}

// Close closes every subscriber channel.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for ch := range q.subs {
		delete(q.subs, ch)
		close(ch)
	}
	return nil
}
