package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
)

// WSSourceConfig configures websocket source behavior.
type WSSourceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for control frames.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds one dial.
	HandshakeTimeout time.Duration
	// Buffer is the capacity of the delivered channel.
	Buffer int
}

// DefaultWSSourceConfig returns default websocket configuration.
func DefaultWSSourceConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		Buffer:            10_000,
	}
}

// WSSource reads JSON event envelopes, one per text frame, from a websocket
// endpoint. Dropped connections are redialed with exponential backoff; events in
// flight while disconnected are lost.
type WSSource struct {
	endpoint string
	config   WSSourceConfig
	dialer   *websocket.Dialer
	logger   zerolog.Logger
}

// NewWSSource creates a websocket source. A nil config uses DefaultWSSourceConfig.
func NewWSSource(endpoint string, config *WSSourceConfig, logger zerolog.Logger) *WSSource {
	cfg := DefaultWSSourceConfig()
	if config != nil {
		cfg = *config
	}
	return &WSSource{
		endpoint: endpoint,
		config:   cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:   logger.With().Str("component", "ws_source").Str("endpoint", endpoint).Logger(),
	}
}

// Subscribe dials the endpoint and streams envelopes until ctx is done.
// Only the first dial error is returned; later failures are retried.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan domain.EventEnvelope, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.EventEnvelope, s.config.Buffer)
	go s.run(ctx, conn, out)
	return out, nil
}

func (s *WSSource) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func (s *WSSource) run(ctx context.Context, conn *websocket.Conn, out chan<- domain.EventEnvelope) {
	defer close(out)

	s.logger.Info().Msg("event stream connected")
	for {
		err := s.consume(ctx, conn, out)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Msg("event stream disconnected")

		conn = s.redial(ctx)
		if conn == nil {
			return
		}
		observability.RecordSourceReconnect()
		s.logger.Info().Msg("event stream reconnected")
	}
}

// redial retries with exponential backoff until it connects or ctx is done.
func (s *WSSource) redial(ctx context.Context) *websocket.Conn {
	delay := s.config.ReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := s.dial(ctx)
		if err == nil {
			return conn
		}
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("reconnect failed")

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// consume reads frames from conn until it fails or ctx is done, and always closes conn.
func (s *WSSource) consume(ctx context.Context, conn *websocket.Conn, out chan<- domain.EventEnvelope) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-cctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.config.WriteTimeout))
		_ = conn.Close()
	}()
	go s.pingLoop(cctx, conn)

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		env, err := decodeEnvelope(message)
		if err != nil {
			observability.RecordEventDropped("unknown", observability.DropMalformed)
			s.logger.Warn().Err(err).Msg("skipping undecodable envelope")
			continue
		}

		select {
		case out <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WSSource) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout)); err != nil {
				s.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}
