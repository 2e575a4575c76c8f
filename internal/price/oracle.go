// Package price caches the quote asset (SOL) USD price used for market-cap math.
package price

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Oracle fetches the current quote asset price in USD.
type Oracle interface {
	FetchUSD(ctx context.Context) (decimal.Decimal, error)
}

// Default CoinGecko settings.
const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultAsset        = "solana"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
)

// ErrPriceUnavailable is returned when the response carries no usable quote.
var ErrPriceUnavailable = errors.New("price unavailable")

// CoinGecko queries the /simple/price endpoint.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	asset      string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

var _ Oracle = (*CoinGecko)(nil)

// Option configures CoinGecko.
type Option func(*CoinGecko)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *CoinGecko) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the x-cg-api-key header value.
func WithAPIKey(key string) Option {
	return func(c *CoinGecko) {
		c.apiKey = key
	}
}

// WithAsset sets the CoinGecko asset id to quote.
func WithAsset(asset string) Option {
	return func(c *CoinGecko) {
		if asset != "" {
			c.asset = asset
		}
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CoinGecko) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *CoinGecko) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *CoinGecko) {
		c.retryDelay = d
	}
}

// NewCoinGecko creates a CoinGecko price client.
func NewCoinGecko(opts ...Option) *CoinGecko {
	c := &CoinGecko{
		baseURL:    DefaultCoinGeckoURL,
		asset:      DefaultAsset,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchUSD returns the USD price of the configured asset, retrying transport
// failures, 429 and 5xx responses with exponential backoff.
func (c *CoinGecko) FetchUSD(ctx context.Context) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(c.asset))

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		p, retry, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return p, nil
		}
		if !retry {
			return decimal.Zero, err
		}
		lastErr = err
	}
	return decimal.Zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *CoinGecko) fetchOnce(ctx context.Context, endpoint string) (decimal.Decimal, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Zero, false, ctx.Err()
		}
		return decimal.Zero, true, fmt.Errorf("http request: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return decimal.Zero, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return decimal.Zero, true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var quotes map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &quotes); err != nil {
		return decimal.Zero, false, fmt.Errorf("unmarshal response: %w", err)
	}
	usd, ok := quotes[c.asset]["usd"]
	if !ok || usd.Sign() <= 0 {
		return decimal.Zero, false, fmt.Errorf("%w: no usd quote for %s", ErrPriceUnavailable, c.asset)
	}
	return usd, false, nil
}
