// Package observability provides Prometheus metrics and logger construction.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for EventsDropped.
const (
	DropMalformed     = "malformed"
	DropUnknownAsset  = "unknown_asset"
	DropPersistFailed = "persist_failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsProcessed        *prometheus.CounterVec
	EventsDropped          *prometheus.CounterVec
	EventProcessingLatency *prometheus.HistogramVec
	AssetsTracked          prometheus.Gauge
	SourceReconnects       prometheus.Counter

	// Trade buffer metrics
	TradeBufferSize       prometheus.Gauge
	TradeBufferHighWater  prometheus.Counter
	TradePublishFallbacks prometheus.Counter

	// Flush metrics
	FlushRows     *prometheus.CounterVec
	FlushDuration *prometheus.HistogramVec
	FlushErrors   *prometheus.CounterVec

	// Price metrics
	SOLPriceUSD          prometheus.Gauge
	PriceRefreshErrors   prometheus.Counter
	LastSuccessfulRefresh prometheus.Gauge

	// Reconciler metrics
	ReconciledAssets *prometheus.CounterVec
	RPCCallLatency   *prometheus.HistogramVec

	// Read path metrics
	AnalyticsDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "curve_indexer"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_processed_total",
			Help:      "Total number of events applied, by kind",
		}, []string{"kind"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped, by kind and reason",
		}, []string{"kind", "reason"}),
		EventProcessingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_latency_seconds",
			Help:      "Event handling latency in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"kind"}),
		AssetsTracked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "assets_tracked",
			Help:      "Number of assets in the in-memory bonding state",
		}),
		SourceReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_reconnects_total",
			Help:      "Total number of event source reconnects",
		}),

		TradeBufferSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tradebuf",
			Name:      "size",
			Help:      "Trade records waiting for the next flush",
		}),
		TradeBufferHighWater: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tradebuf",
			Name:      "high_water_crossings_total",
			Help:      "Times the trade buffer crossed its high-water mark",
		}),
		TradePublishFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tradebuf",
			Name:      "publish_fallbacks_total",
			Help:      "Trade records appended locally because the queue was full or unavailable",
		}),

		FlushRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flush",
			Name:      "rows_total",
			Help:      "Rows written per flusher",
		}, []string{"flusher"}),
		FlushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flush",
			Name:      "duration_seconds",
			Help:      "Flush cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flusher"}),
		FlushErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flush",
			Name:      "errors_total",
			Help:      "Failed flush cycles per flusher",
		}, []string{"flusher"}),

		SOLPriceUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "quote_usd",
			Help:      "Cached quote asset price in USD",
		}),
		PriceRefreshErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "refresh_errors_total",
			Help:      "Failed price refreshes",
		}),
		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "last_refresh_timestamp",
			Help:      "Unix timestamp of last successful price refresh",
		}),

		ReconciledAssets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "assets_total",
			Help:      "Assets reconciled against chain state, by outcome",
		}, []string{"outcome"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		AnalyticsDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "analytics_duration_seconds",
			Help:      "Time to rebuild the tokens read model",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordEventProcessed counts an applied event and its handling latency.
func RecordEventProcessed(kind string, seconds float64) {
	DefaultMetrics.EventsProcessed.WithLabelValues(kind).Inc()
	DefaultMetrics.EventProcessingLatency.WithLabelValues(kind).Observe(seconds)
}

// RecordEventDropped counts a dropped event.
func RecordEventDropped(kind, reason string) {
	DefaultMetrics.EventsDropped.WithLabelValues(kind, reason).Inc()
}

// UpdateAssetsTracked sets the tracked assets gauge.
func UpdateAssetsTracked(n int) {
	DefaultMetrics.AssetsTracked.Set(float64(n))
}

// RecordSourceReconnect counts an event source reconnect.
func RecordSourceReconnect() {
	DefaultMetrics.SourceReconnects.Inc()
}

// UpdateTradeBufferSize sets the trade buffer gauge.
func UpdateTradeBufferSize(n int) {
	DefaultMetrics.TradeBufferSize.Set(float64(n))
}

// RecordTradeBufferHighWater counts a high-water crossing.
func RecordTradeBufferHighWater() {
	DefaultMetrics.TradeBufferHighWater.Inc()
}

// RecordPublishFallback counts a record appended locally instead of published.
func RecordPublishFallback() {
	DefaultMetrics.TradePublishFallbacks.Inc()
}

// RecordFlush records one flush cycle.
func RecordFlush(flusher string, rows int, seconds float64, err error) {
	DefaultMetrics.FlushDuration.WithLabelValues(flusher).Observe(seconds)
	if err != nil {
		DefaultMetrics.FlushErrors.WithLabelValues(flusher).Inc()
		return
	}
	DefaultMetrics.FlushRows.WithLabelValues(flusher).Add(float64(rows))
}

// RecordPriceRefresh records a price refresh outcome.
func RecordPriceRefresh(price float64, unix int64, err error) {
	if err != nil {
		DefaultMetrics.PriceRefreshErrors.Inc()
		return
	}
	DefaultMetrics.SOLPriceUSD.Set(price)
	DefaultMetrics.LastSuccessfulRefresh.Set(float64(unix))
}

// RecordReconciled counts a reconciled asset by outcome.
func RecordReconciled(outcome string) {
	DefaultMetrics.ReconciledAssets.WithLabelValues(outcome).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAnalytics records a read model rebuild.
func RecordAnalytics(seconds float64) {
	DefaultMetrics.AnalyticsDuration.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
