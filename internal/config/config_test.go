package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a file that does not exist so a developer .env is ignored.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/indexer")
	t.Setenv("EVENTS_WS_URL", "ws://localhost:9000/events")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "solana", cfg.PriceAsset)
	assert.Equal(t, "trade", cfg.RedisChannel)
	assert.Equal(t, 15*time.Second, cfg.PriceRefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.TradeFlushInterval)
	assert.Equal(t, 10*time.Second, cfg.StateFlushInterval)
	assert.Equal(t, 50_000, cfg.TradeBufferHighWater)
	assert.Equal(t, "confirmed", cfg.SolanaCommitment)
	assert.Equal(t, 30*time.Second, cfg.SolanaRPCTimeout)
	assert.Equal(t, 3, cfg.SolanaRPCMaxRetries)
	assert.Equal(t, time.Second, cfg.SolanaRPCRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.PriceTimeout)
	assert.Equal(t, 2, cfg.PriceMaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.PriceRetryDelay)
	assert.False(t, cfg.UseMemory)
	assert.Equal(t, "info", cfg.Log().Level)
}

func TestLoad_DatabaseRequiredUnlessMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EVENTS_WS_URL", "ws://localhost:9000/events")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("USE_MEMORY", "true")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.True(t, cfg.UseMemory)
}

func TestLoad_EventSourceRequired(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("EVENTS_WS_URL", "")
	t.Setenv("REPLAY_FILE", "")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("EVENTS_WS_URL", "ws://x")
	t.Setenv("TRADE_FLUSH_INTERVAL", "soon")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_BadCommitment(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("EVENTS_WS_URL", "ws://x")
	t.Setenv("SOLANA_COMMITMENT", "final")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("SOLANA_COMMITMENT", "finalized")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "finalized", cfg.SolanaCommitment)
}

func TestLoad_NegativeRetries(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("EVENTS_WS_URL", "ws://x")
	t.Setenv("PRICE_MAX_RETRIES", "-1")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("USE_MEMORY=true\nREPLAY_FILE=events.jsonl\nHTTP_ADDR=:9999\n"), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"USE_MEMORY", "REPLAY_FILE", "HTTP_ADDR"} {
			_ = os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "events.jsonl", cfg.ReplayFile)
}
