package price

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-curve-indexer/internal/observability"
)

// DefaultRefreshInterval is the price refresh period.
const DefaultRefreshInterval = 15 * time.Second

// Cache holds the last known quote price. Reads never block on the oracle.
type Cache struct {
	oracle   Oracle
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time
}

// CacheOptions configures the Cache.
type CacheOptions struct {
	Oracle          Oracle
	RefreshInterval time.Duration
	// RefreshTimeout bounds one Refresh call made by Run.
	RefreshTimeout time.Duration
	// Initial seeds the cache until the first successful refresh.
	Initial decimal.Decimal
	Logger  zerolog.Logger
}

// NewCache creates a price cache.
func NewCache(opts CacheOptions) *Cache {
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = interval
	}
	return &Cache{
		oracle:   opts.Oracle,
		interval: interval,
		timeout:  timeout,
		logger:   opts.Logger.With().Str("component", "price").Logger(),
		now:      time.Now,
		price:    opts.Initial,
	}
}

// Read returns the cached price, possibly stale. Zero until the first success
// unless seeded.
func (c *Cache) Read() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price
}

// UpdatedAt returns the time of the last successful refresh.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Set stores p as the current price.
func (c *Cache) Set(p decimal.Decimal) {
	c.mu.Lock()
	c.price = p
	c.updatedAt = c.now()
	c.mu.Unlock()
}

// Refresh fetches a new price. On failure the previous value stays in place.
func (c *Cache) Refresh(ctx context.Context) (decimal.Decimal, error) {
	p, err := c.oracle.FetchUSD(ctx)
	if err != nil {
		observability.RecordPriceRefresh(0, 0, err)
		return c.Read(), err
	}
	c.Set(p)
	f, _ := p.Float64()
	observability.RecordPriceRefresh(f, c.now().Unix(), nil)
	return p, nil
}

// Run refreshes immediately and then on every interval until ctx is done.
// Errors are logged and never returned.
func (c *Cache) Run(ctx context.Context) error {
	c.refreshLogged(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refreshLogged(ctx)
		}
	}
}

func (c *Cache) refreshLogged(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p, err := c.Refresh(rctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		ev := c.logger.Warn().Err(err).Str("cached", p.String())
		if at := c.UpdatedAt(); !at.IsZero() {
			ev = ev.Dur("stale_for", c.now().Sub(at))
		}
		ev.Msg("price refresh failed, keeping cached value")
		return
	}
	c.logger.Debug().Str("usd", p.String()).Msg("price refreshed")
}
