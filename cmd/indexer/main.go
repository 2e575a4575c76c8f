// Package main runs the bonding-curve indexer:
// - Ingestion: event stream → processor → in-memory curve state + trade queue
// - Persistence: periodic trade and state flushes to PostgreSQL (optional ClickHouse archive)
// - Read API: GET /tokens analytics, /health, /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-curve-indexer/internal/analytics"
	"solana-curve-indexer/internal/api"
	"solana-curve-indexer/internal/config"
	"solana-curve-indexer/internal/flush"
	"solana-curve-indexer/internal/ingestion"
	"solana-curve-indexer/internal/observability"
	"solana-curve-indexer/internal/price"
	"solana-curve-indexer/internal/solana"
	"solana-curve-indexer/internal/state"
	"solana-curve-indexer/internal/storage"
	chstore "solana-curve-indexer/internal/storage/clickhouse"
	"solana-curve-indexer/internal/storage/memory"
	"solana-curve-indexer/internal/storage/migrations"
	pgstore "solana-curve-indexer/internal/storage/postgres"
	"solana-curve-indexer/internal/tradebuf"
)

// stores holds the storage implementations selected at startup.
type stores struct {
	assets  storage.AssetStore
	trades  storage.TradeStore
	archive storage.TradeArchive
	close   func()
}

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	replayFile := flag.String("replay", "", "Replay newline-delimited JSON events from file instead of the websocket")
	logLevel := flag.String("log-level", "", "Log level (overrides LOG_LEVEL)")
	skipReconcile := flag.Bool("skip-reconcile", false, "Skip the startup on-chain reconciliation")
	flag.Parse()

	cfg, err := config.Read(*envFile)
	if err == nil {
		if *useMemory {
			cfg.UseMemory = true
		}
		if *httpAddr != "" {
			cfg.HTTPAddr = *httpAddr
		}
		if *replayFile != "" {
			cfg.ReplayFile = *replayFile
		}
		if *logLevel != "" {
			cfg.LogLevel = *logLevel
		}
		if *skipReconcile {
			cfg.SolanaRPCURL = ""
		}
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}

	logger, logCloser, err := observability.NewLogger(cfg.Log(), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("indexer failed")
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A second signal after shutdown starts kills the process; a stuck shutdown is
	// bounded by ShutdownTimeout.
	go func() {
		<-ctx.Done()
		stop()
		logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
		time.AfterFunc(cfg.ShutdownTimeout, func() {
			logger.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		})
	}()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// Rebuild in-memory curve state from the asset table.
	curves := state.New()
	persisted, err := st.assets.GetCurveStates(ctx)
	if err != nil {
		return fmt.Errorf("load curve states: %w", err)
	}
	loaded := curves.Load(persisted)
	observability.UpdateAssetsTracked(curves.Len())
	logger.Info().Int("assets", loaded).Msg("curve state loaded")

	oracle := price.NewCoinGecko(
		price.WithBaseURL(cfg.CoinGeckoURL),
		price.WithAPIKey(cfg.CoinGeckoAPIKey),
		price.WithAsset(cfg.PriceAsset),
		price.WithTimeout(cfg.PriceTimeout),
		price.WithMaxRetries(cfg.PriceMaxRetries),
		price.WithRetryDelay(cfg.PriceRetryDelay),
	)
	prices := price.NewCache(price.CacheOptions{
		Oracle:          oracle,
		RefreshInterval: cfg.PriceRefreshInterval,
		Logger:          logger,
	})
	if p, err := prices.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial price fetch failed, market caps wait for the next refresh")
	} else {
		logger.Info().Str("usd", p.String()).Msg("initial price fetched")
	}

	if cfg.SolanaRPCURL != "" {
		rpc := solana.NewHTTPClient(cfg.SolanaRPCURL,
			solana.WithRateLimit(cfg.SolanaRPCRate, max(1, int(cfg.SolanaRPCRate))),
			solana.WithCommitment(cfg.SolanaCommitment),
			solana.WithTimeout(cfg.SolanaRPCTimeout),
			solana.WithMaxRetries(cfg.SolanaRPCMaxRetries),
			solana.WithRetryDelay(cfg.SolanaRPCRetryDelay),
		)
		reconciler := ingestion.NewReconciler(ingestion.ReconcilerOptions{
			RPC:         rpc,
			Assets:      st.assets,
			States:      curves,
			Prices:      prices,
			Concurrency: cfg.ReconcileConcurrency,
			Logger:      logger,
		})
		if _, err := reconciler.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("reconciliation incomplete")
		}
	}

	buffer := tradebuf.NewBuffer(cfg.TradeBufferHighWater, logger)
	queue, err := openQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer queue.Close()

	source, closeSource, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	// Flushers outlive ingestion so their final flush sees everything the
	// publisher and relay handed over.
	flushCtx, stopFlush := context.WithCancel(context.WithoutCancel(ctx))
	defer stopFlush()
	var flushers errgroup.Group
	tradeFlusher := flush.NewTradeFlusher(flush.TradeFlusherOptions{
		Buffer:   buffer,
		Trades:   st.trades,
		Archive:  st.archive,
		Interval: cfg.TradeFlushInterval,
		Logger:   logger,
	})
	stateFlusher := flush.NewStateFlusher(flush.StateFlusherOptions{
		Store:    curves,
		Assets:   st.assets,
		Interval: cfg.StateFlushInterval,
		Logger:   logger,
	})
	flushers.Go(func() error { return tradeFlusher.Run(flushCtx) })
	flushers.Go(func() error { return stateFlusher.Run(flushCtx) })

	g, gctx := errgroup.WithContext(ctx)

	relay := tradebuf.NewRelay(queue, buffer, logger)
	relayLoop, err := relay.Subscribe(gctx)
	if err != nil {
		stopFlush()
		_ = flushers.Wait()
		return err
	}
	publisher := tradebuf.NewPublisher(tradebuf.PublisherOptions{
		Queue:    queue,
		Fallback: buffer,
		Logger:   logger,
	})
	processor := ingestion.NewProcessor(ingestion.ProcessorOptions{
		Assets: st.assets,
		States: curves,
		Prices: prices,
		Trades: publisher,
		Logger: logger,
	})
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:    source,
		Processor: processor,
		Logger:    logger,
	})

	handler := api.NewHandler(api.HandlerOptions{
		Analytics: analytics.NewReconstructor(analytics.ReconstructorOptions{
			Assets: st.assets,
			Trades: st.trades,
			Logger: logger,
		}),
		Metrics: observability.Handler(),
		Logger:  logger,
	})
	srv := api.NewServer(cfg.HTTPAddr, handler)

	g.Go(relayLoop)
	g.Go(func() error { return publisher.Run(gctx) })
	g.Go(func() error { return prices.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if errors.Is(err, ingestion.ErrSourceClosed) {
		logger.Info().Msg("event source exhausted")
		err = nil
	}

	stopFlush()
	if ferr := flushers.Wait(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.UseMemory {
		assets := memory.NewAssetStore()
		logger.Info().Msg("using in-memory storage")
		return &stores{assets: assets, trades: memory.NewTradeStore(assets), close: func() {}}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	st := &stores{
		assets: pgstore.NewAssetStore(pool),
		trades: pgstore.NewTradeStore(pool),
		close:  pool.Close,
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		st.archive = chstore.NewTradeArchive(conn)
		st.close = func() {
			_ = conn.Close()
			pool.Close()
		}
		logger.Info().Msg("clickhouse trade archive enabled")
	}
	return st, nil
}

func openQueue(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (tradebuf.Queue, error) {
	if cfg.RedisURL == "" {
		return tradebuf.NewMemoryQueue(0), nil
	}
	q, err := tradebuf.NewRedisQueue(ctx, cfg.RedisURL, tradebuf.RedisQueueOptions{
		Channel: cfg.RedisChannel,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("channel", cfg.RedisChannel).Msg("using redis trade queue")
	return q, nil
}

func openSource(cfg *config.Config, logger zerolog.Logger) (ingestion.Source, func(), error) {
	if cfg.ReplayFile == "" {
		return ingestion.NewWSSource(cfg.EventsWSURL, nil, logger), func() {}, nil
	}
	f, err := os.Open(cfg.ReplayFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open replay file: %w", err)
	}
	logger.Info().Str("file", cfg.ReplayFile).Msg("replaying events from file")
	return ingestion.NewReaderSource(f, logger), func() { closeQuietly(f) }, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
