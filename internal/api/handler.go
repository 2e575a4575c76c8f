// Package api serves the analytics read model over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
)

// Analytics computes the read model on demand.
type Analytics interface {
	ComputeAll(ctx context.Context) ([]domain.AssetAnalytics, error)
}

// HandlerOptions configures the HTTP handler.
type HandlerOptions struct {
	Analytics Analytics
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// RequestTimeout bounds one /tokens computation.
	RequestTimeout time.Duration // Default: 30s
	Logger         zerolog.Logger
}

type handler struct {
	analytics Analytics
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewHandler returns the mux serving /tokens, /health and /metrics.
func NewHandler(opts HandlerOptions) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &handler{
		analytics: opts.Analytics,
		timeout:   timeout,
		logger:    opts.Logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.Handle("/tokens", cors(getOnly(http.HandlerFunc(h.tokens))))
	mux.Handle("/health", getOnly(http.HandlerFunc(health)))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	return mux
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (h *handler) tokens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	items, err := h.analytics.ComputeAll(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("computing analytics failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	if items == nil {
		items = []domain.AssetAnalytics{}
	}

	h.logger.Debug().Int("assets", len(items)).Dur("took", time.Since(start)).Msg("tokens served")
	writeJSON(w, http.StatusOK, items)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
