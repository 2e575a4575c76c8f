package ingestion

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/observability"
)

// Source delivers decoded event envelopes in arrival order.
// The returned channel is closed when the source is exhausted or ctx is done.
type Source interface {
	Subscribe(ctx context.Context) (<-chan domain.EventEnvelope, error)
}

// ReaderSource decodes newline-delimited JSON envelopes from r, for replaying a
// captured stream. Lines that fail to decode are counted as malformed and skipped.
type ReaderSource struct {
	r      io.Reader
	logger zerolog.Logger
}

// NewReaderSource creates a source over r.
func NewReaderSource(r io.Reader, logger zerolog.Logger) *ReaderSource {
	return &ReaderSource{r: r, logger: logger.With().Str("component", "reader_source").Logger()}
}

// Subscribe starts decoding in the background.
func (s *ReaderSource) Subscribe(ctx context.Context) (<-chan domain.EventEnvelope, error) {
	out := make(chan domain.EventEnvelope)
	go func() {
		defer close(out)

		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
		line := 0
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			env, err := decodeEnvelope(sc.Bytes())
			if err != nil {
				observability.RecordEventDropped("unknown", observability.DropMalformed)
				s.logger.Warn().Err(err).Int("line", line).Msg("skipping undecodable envelope")
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			s.logger.Error().Err(err).Msg("replay read failed")
		}
	}()
	return out, nil
}

func decodeEnvelope(data []byte) (domain.EventEnvelope, error) {
	var env domain.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	env.ReceivedAt = time.Now().UTC()
	return env, nil
}
