// Package main renders a snapshot of the token analytics view.
//
// Sources:
//   - --postgres-dsn: the indexer's asset and trade tables
//   - --replay: a newline-delimited JSON event file, indexed in memory at a fixed SOL price
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-curve-indexer/internal/analytics"
	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/flush"
	"solana-curve-indexer/internal/ingestion"
	"solana-curve-indexer/internal/observability"
	"solana-curve-indexer/internal/reporting"
	"solana-curve-indexer/internal/state"
	"solana-curve-indexer/internal/storage"
	"solana-curve-indexer/internal/storage/memory"
	pgstore "solana-curve-indexer/internal/storage/postgres"
	"solana-curve-indexer/internal/tradebuf"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	replayFile := flag.String("replay", "", "Index a newline-delimited JSON event file in memory instead of reading PostgreSQL")
	solUSD := flag.String("sol-usd", "150", "SOL/USD price applied to replayed trades")
	format := flag.String("format", "md", "Output format: json, csv or md")
	output := flag.String("output", "", "Output file (default stdout)")
	limit := flag.Int("limit", 50, "Assets listed in the markdown table (0 lists all)")
	flag.Parse()

	logger, closer, err := observability.NewLogger(observability.LogConfig{Level: "warn", Format: "console"}, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if *replayFile == "" && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn or --replay is required")
		os.Exit(2)
	}

	ctx := context.Background()

	var (
		assets storage.AssetStore
		trades storage.TradeStore
	)
	if *replayFile != "" {
		price, err := decimal.NewFromString(*solUSD)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --sol-usd: %v\n", err)
			os.Exit(2)
		}
		assets, trades, err = replayStores(ctx, *replayFile, price, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error replaying events: %v\n", err)
			os.Exit(1)
		}
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		assets = pgstore.NewAssetStore(pool)
		trades = pgstore.NewTradeStore(pool)
	}

	items, err := analytics.NewReconstructor(analytics.ReconstructorOptions{
		Assets: assets,
		Trades: trades,
		Logger: logger,
	}).ComputeAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing analytics: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := render(out, *format, items, time.Now(), *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
}

func render(w io.Writer, format string, items []domain.AssetAnalytics, now time.Time, limit int) error {
	switch format {
	case "json":
		if items == nil {
			items = []domain.AssetAnalytics{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "csv":
		_, err := io.WriteString(w, reporting.RenderCSV(items))
		return err
	case "md":
		_, err := io.WriteString(w, reporting.RenderMarkdown(items, now, limit))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

// replayStores runs the event file through the ingestion processor into memory stores
// and flushes trades and curve state once at the end.
func replayStores(ctx context.Context, path string, solUSD decimal.Decimal, logger zerolog.Logger) (storage.AssetStore, storage.TradeStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	assets := memory.NewAssetStore()
	trades := memory.NewTradeStore(assets)
	curves := state.New()
	buffer := tradebuf.NewBuffer(0, logger)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source: ingestion.NewReaderSource(f, logger),
		Processor: ingestion.NewProcessor(ingestion.ProcessorOptions{
			Assets: assets,
			States: curves,
			Prices: fixedPrice(solUSD),
			Trades: bufferSink{buffer},
			Logger: logger,
		}),
		Logger: logger,
	})
	if err := runner.Run(ctx); err != nil && !errors.Is(err, ingestion.ErrSourceClosed) {
		return nil, nil, err
	}

	if _, err := flush.NewTradeFlusher(flush.TradeFlusherOptions{
		Buffer: buffer,
		Trades: trades,
		Logger: logger,
	}).FlushOnce(ctx); err != nil {
		return nil, nil, err
	}
	if _, err := flush.NewStateFlusher(flush.StateFlusherOptions{
		Store:  curves,
		Assets: assets,
		Logger: logger,
	}).FlushOnce(ctx); err != nil {
		return nil, nil, err
	}
	return assets, trades, nil
}

type fixedPrice decimal.Decimal

func (p fixedPrice) Read() decimal.Decimal { return decimal.Decimal(p) }

type bufferSink struct{ b *tradebuf.Buffer }

func (s bufferSink) Enqueue(rec domain.TradeRecord) { s.b.Enqueue(rec) }
