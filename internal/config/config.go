// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"solana-curve-indexer/internal/observability"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full process configuration. Every field maps to one environment
// variable with no prefix.
type Config struct {
	// Storage
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	UseMemory     bool   `envconfig:"USE_MEMORY" default:"false"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"` // empty disables the trade archive

	// Event stream; ReplayFile replaces the websocket when set
	EventsWSURL string `envconfig:"EVENTS_WS_URL"`
	ReplayFile  string `envconfig:"REPLAY_FILE"`

	// Trade queue; empty RedisURL uses the in-process queue
	RedisURL     string `envconfig:"REDIS_URL"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"trade"`

	// Reconciler; empty SolanaRPCURL disables it
	SolanaRPCURL         string        `envconfig:"SOLANA_RPC_URL"`
	SolanaRPCRate        float64       `envconfig:"SOLANA_RPC_RATE" default:"10"`
	SolanaCommitment     string        `envconfig:"SOLANA_COMMITMENT" default:"confirmed"`
	SolanaRPCTimeout     time.Duration `envconfig:"SOLANA_RPC_TIMEOUT" default:"30s"`
	SolanaRPCMaxRetries  int           `envconfig:"SOLANA_RPC_MAX_RETRIES" default:"3"`
	SolanaRPCRetryDelay  time.Duration `envconfig:"SOLANA_RPC_RETRY_DELAY" default:"1s"`
	ReconcileConcurrency int           `envconfig:"RECONCILE_CONCURRENCY" default:"4"`

	// Price oracle
	CoinGeckoAPIKey string        `envconfig:"COINGECKO_API_KEY"`
	CoinGeckoURL    string        `envconfig:"COINGECKO_URL" default:"https://api.coingecko.com/api/v3"`
	PriceAsset      string        `envconfig:"PRICE_ASSET" default:"solana"`
	PriceTimeout    time.Duration `envconfig:"PRICE_TIMEOUT" default:"10s"`
	PriceMaxRetries int           `envconfig:"PRICE_MAX_RETRIES" default:"2"`
	PriceRetryDelay time.Duration `envconfig:"PRICE_RETRY_DELAY" default:"500ms"`

	// Intervals
	PriceRefreshInterval time.Duration `envconfig:"PRICE_REFRESH_INTERVAL" default:"15s"`
	TradeFlushInterval   time.Duration `envconfig:"TRADE_FLUSH_INTERVAL" default:"10s"`
	StateFlushInterval   time.Duration `envconfig:"STATE_FLUSH_INTERVAL" default:"10s"`
	ShutdownTimeout      time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	TradeBufferHighWater int `envconfig:"TRADE_BUFFER_HIGH_WATER" default:"50000"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8000"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogFile   string `envconfig:"LOG_FILE"`
}

// Load reads the configuration and validates it.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads an optional .env file, then the environment, without cross-field
// validation. Variables already set in the environment win over the file.
func Read(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if !c.UseMemory && c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required unless USE_MEMORY is set", ErrInvalidConfig)
	}
	if c.EventsWSURL == "" && c.ReplayFile == "" {
		return fmt.Errorf("%w: EVENTS_WS_URL or REPLAY_FILE is required", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"PRICE_REFRESH_INTERVAL": c.PriceRefreshInterval,
		"TRADE_FLUSH_INTERVAL":   c.TradeFlushInterval,
		"STATE_FLUSH_INTERVAL":   c.StateFlushInterval,
		"SOLANA_RPC_TIMEOUT":     c.SolanaRPCTimeout,
		"SOLANA_RPC_RETRY_DELAY": c.SolanaRPCRetryDelay,
		"PRICE_TIMEOUT":          c.PriceTimeout,
		"PRICE_RETRY_DELAY":      c.PriceRetryDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if c.SolanaRPCRate <= 0 {
		return fmt.Errorf("%w: SOLANA_RPC_RATE must be positive", ErrInvalidConfig)
	}
	if c.SolanaRPCMaxRetries < 0 || c.PriceMaxRetries < 0 {
		return fmt.Errorf("%w: retry counts must not be negative", ErrInvalidConfig)
	}
	switch c.SolanaCommitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("%w: SOLANA_COMMITMENT must be processed, confirmed or finalized", ErrInvalidConfig)
	}
	return nil
}

// Log returns the logger settings.
func (c *Config) Log() observability.LogConfig {
	return observability.LogConfig{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile}
}
